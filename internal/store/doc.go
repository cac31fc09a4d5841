// Package store provides a SQLite-backed run journal.
//
// The journal records one row per protocol run and one row per dispatched
// command:
//   - runs: protocol name, document hash, canonical document, outcome
//   - command_events: per-command type, canonical params, outcome
//
// # Ordering
//
// Command events are keyed by (run_id, seq) where seq is the command's
// position in the document. Reads order by seq, never by timestamp, so a
// journal reads back identically regardless of wall time.
//
// Runs list newest first with the run id as tiebreaker. RunFilter narrows a
// listing; it compiles to parameterized SQL over a fixed set of columns.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Params and documents are stored as canonical JSON (see
// protocol.MarshalCanonical) so hashes recomputed from the journal match the
// ones taken at run time.
package store
