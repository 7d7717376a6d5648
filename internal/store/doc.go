// Package store is the SQLite journal of scenario runs.
//
// Each run of a scenario gets one row in runs, keyed by a UUIDv7 run id, and
// one row per trace event in events. Events are append-only and ordered by
// their position in the run (idx), never by wall time; seq is the logical
// clock value the engine assigned.
//
// Values are stored as canonical JSON (value.MarshalCanonical), so two runs
// that saw the same values store byte-identical rows.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: events cannot outlive their run
package store
