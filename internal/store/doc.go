// Package store provides durable local state for the foodking client.
//
// Local state is a small set of opaque records addressed by fixed keys
// (the cart under "foodking_cart", the staff token under "adminToken").
// Each record is owned by exactly one component, which is the only writer.
//
// # Implementations
//
//   - Store: a SQLite file, the default. Survives process restarts.
//   - Redis: a shared Redis instance, for clients that run on several hosts.
//   - Memory: process-local, for tests and throwaway sessions.
//
// # Durability
//
// Put and Delete return only after the write is committed. The SQLite store
// runs with synchronous=FULL so a write that returned survives power loss.
//
// # Database Configuration
//
//   - WAL mode: readers never block the single writer
//   - synchronous=FULL: committed writes are on disk
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - one open connection: SQLite allows one writer at a time
package store
