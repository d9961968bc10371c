// Package model provides the value types shared by every foodking package.
//
// This package contains type definitions, boundary validation and the error
// taxonomy. It imports nothing internal, so every other package can depend on
// it without cycles.
//
// Key constraints:
//   - Money is decimal.Decimal, never float64
//   - JSON tags follow the REST boundary (camelCase, "_id" for ids)
//   - OrderStatus values are the wire labels; unknown labels fail to decode
//   - Values crossing the REST boundary are checked with Validate before they
//     reach the cart or the lifecycle
package model
