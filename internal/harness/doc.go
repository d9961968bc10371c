// Package harness runs end-to-end scenarios of the foodking CLI against an
// in-process demo server.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: place_and_track
//	description: "A customer orders a pizza and follows it to the door"
//	setup:
//	  - action: fail_next
//	    code: 503
//	    count: 1
//	flow:
//	  - run: [cart, add, pizza-margherita]
//	  - run: [checkout, --name, Asha, --phone, "9876543210", --address, "12 MG Road"]
//	    expect:
//	      exit: 0
//	      stdout: ["Order placed"]
//	  - server:
//	      action: set_status
//	      order: 1
//	      status: Preparing
//	assertions:
//	  - type: order_status
//	    order: 1
//	    status: Preparing
//	  - type: cart_count
//	    count: 0
//
// A flow step either runs the CLI with the given arguments or changes the
// server directly, the way another staff client or an operator would.
// Steps without an expect clause must exit 0.
//
// # Server Actions
//
//   - set_status: force order N (1-based, in creation order) to a status
//   - fail_next: answer the next count requests with HTTP code
//   - expire: invalidate every issued staff token
//
// # Assertion Types
//
//   - order_count: the server holds exactly count orders
//   - order_status: order N has the given status
//   - cart_count: the persisted cart holds count units
//   - logged_in: whether a staff token is persisted
//
// # Deterministic Output
//
// Every scenario gets a fresh demo server whose clock is fixed at Start and
// whose ids come from a sequence (fk-1, fk-2, ...), plus a fresh state
// directory. The stdout of each step is therefore reproducible and the
// transcript can be compared against a golden file with RunWithGolden.
package harness
