// Package checkout turns the cart into a placed order.
//
// Submit validates locally first (empty cart, missing delivery fields,
// unknown payment method) and sends nothing when validation fails. A valid
// submission makes exactly one POST /orders carrying a fresh idempotency
// key; only a confirmed order clears the cart. Any failure leaves the cart
// as it was so the customer can simply try again.
//
// The delivery location comes from an optional Locator bounded by a short
// timeout. When it fails or is missing the default coordinates are sent.
package checkout
