// Package lifecycle is the order status state machine.
//
// The transition table is data, not code spread across call sites:
//
//	Pending        -> Accepted | Rejected
//	Accepted       -> Preparing
//	Preparing      -> Out for Delivery
//	Out for Delivery -> Delivered
//
// Delivered and Rejected are terminal. CanTransition is a pure, total
// function over this table; Apply enforces it on a snapshot.
//
// Transitioner is the only path by which staff move an order. It refuses an
// illegal request before any I/O, sends legal ones to the server, and updates
// the local snapshot only from the server's confirmed answer. There is no
// optimistic update: two staff clients looking at the same order can lag
// server truth by at most one poll interval, never diverge from it.
package lifecycle
