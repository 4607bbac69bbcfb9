// Package journal provides SQLite-backed durable storage for tick records.
//
// The journal is an append-only log with:
//   - Runs: one row per scenario execution, keyed by a UUIDv7 run id
//   - Ticks: one row per finalized tick, with telemetry, the committed
//     batch as canonical JSON, and the document fingerprint after apply
//
// # Ordering
//
// Runs are ordered by their insertion seq, ticks by tick_id. Wall-clock
// timestamps are never used for ordering.
//
// # Idempotency
//
// Ticks are keyed by (run_id, tick_id). Writing the same tick twice is a
// no-op, so a host may retry a write after a crash without duplicating rows.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Fingerprints are stored as 16-digit lower-case hex so they survive
// SQLite's signed 64-bit integers unchanged.
package journal
