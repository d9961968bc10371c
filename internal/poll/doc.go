// Package poll keeps a view of server state fresh by re-fetching it on a
// fixed interval.
//
// A Subscription owns exactly one goroutine. It fetches immediately, then
// waits interval after the fetch settles before fetching again, so two
// fetches of the same subscription are never in flight at once and a slow
// server stretches the period instead of piling up requests.
//
// Failures do not stop the loop. The last good value is kept, the error is
// reported through OnError and Status, and the next tick happens at the
// usual interval (no backoff).
//
// Cancel is idempotent. A fetch that resolves after Cancel is discarded: it
// is never stored and never delivered.
package poll
