// Package store exports engine runs to SQLite for later inspection.
//
// A recorded run is three tables:
//   - runs: counters, the canonical snapshot and its hash
//   - firings: every applied fact with the invocation that produced it
//   - failures: every isolated failure with its code
//
// Recording is idempotent per (run_id, seq) for firings and (run_id, idx)
// for failures, so writing the same result twice leaves one copy.
//
// All reads order by logical sequence, never by wall time, so two exports of
// the same deterministic run read back identically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The store is an export only. Nothing in it is read back into a run.
package store
