// Package store provides SQLite-backed run history for conform.
//
// Every `conform test` invocation with a database configured becomes a run:
//   - runs: one row per harness run, with start/finish time and totals
//   - results: one row per scenario in the run, keyed by (run_id, seq)
//
// Results record the scenario's contract digest, so history shows whether a
// scenario changed between two runs as well as whether it passed.
//
// # Ordering
//
// Run IDs are UUIDv7 and timestamps are stored as fixed-width UTC text, so
// ordering by started_at then id is stable. Results within a run are
// ordered by seq, the scenario's position in discovery order.
//
// # Database Configuration
//
//   - WAL mode: history can be read while a run is written
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s for locks
//   - foreign_keys=ON: results must reference an existing run
package store
