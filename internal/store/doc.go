// Package store provides SQLite-backed run history for apiparity.
//
// Every finalized SuiteReport can be written once and read back later:
//   - runs: one row per suite run (identity, timing, summary, fingerprint)
//   - outcomes: one row per case outcome, keyed by (run_id, case_id)
//
// # Ordering
//
// Runs are listed by insertion order (seq), newest first. Outcomes are read
// back in report order: ORDER BY seq ASC, case_id ASC COLLATE BINARY.
//
// # Idempotency
//
// Writing a run whose run_id already exists is a no-op, so a reporter may
// safely retry.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Violations are stored as canonical JSON and each run carries the
// fingerprint of its outcomes (internal/ir/hash.go), so two runs with the
// same verdicts compare equal without reading their outcomes.
package store
