// Package devserver is an in-memory implementation of the foodking REST API.
//
// It exists so the client can be exercised end to end without the
// production backend: tests mount it behind httptest, and `foodking serve`
// runs it for local development. It follows the production wire format
// ({success, data, message} envelopes, flat login and /auth/me bodies) and
// enforces the same order transition table as the client.
//
// Prices are resolved from the server's own menu; the client only sends item
// ids and quantities. Tax is 5% of the subtotal, rounded to whole rupees.
// Staff passwords are bcrypt hashes and bearer tokens are HS256 JWTs.
//
// Test helpers (FailNext, SetStatus, Expire, Requests) let a test inject
// faults and simulate other staff clients.
package devserver
