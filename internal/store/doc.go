// Package store is the SQLite trace journal for signal emissions.
//
// A journal holds runs. Each run is identified by a UUIDv7 and records:
//   - Emissions: one row per EmitSignal that reached dispatch
//   - Dispatches: one row per connection reached by an emission, with its
//     outcome (ok, error, dangling, deferred)
//
// Ordering uses the emitting DB's logical clock (seq), never wall time, so a
// scenario run twice produces the same journal apart from its run id.
// Queries order by seq ASC, id ASC COLLATE BINARY.
//
// Row ids are content addressed: SHA-256 over a domain prefix, a null byte,
// and the canonical JSON of the row's identifying fields. Writes use
// ON CONFLICT DO NOTHING, so rewriting a row is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
