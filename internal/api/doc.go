// Package api is the foodking REST client.
//
// Every call goes through Client.do, which owns the parts the callers must
// not re-derive:
//
//   - the bearer token, read from the bound Credentials on each request and
//     omitted when there is none
//   - the {success, data, message} envelope
//   - mapping of transport and HTTP failures onto model.Error codes
//   - telling the Credentials when the server rejects the token (401)
//   - one trace span per call
//
// Values decoded from responses are validated before they are returned, so
// nothing malformed reaches the cart or the lifecycle.
//
// # Status mapping
//
//	transport error, timeout, 5xx   NETWORK
//	401                             AUTH (credentials invalidated)
//	404                             NOT_FOUND
//	400/409/422 on a status update  INVALID_TRANSITION
//	other 4xx                       VALIDATION
package api
