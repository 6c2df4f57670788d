// Package store provides a SQLite-backed record store.
//
// Records are kept as canonical JSON documents grouped by dataset. A
// *Collection is a records.Handle: filters accumulate as a queryir predicate
// without touching the database, and Sum / Count run one compiled statement.
//
// # Critical Patterns
//
// Parameterised SQL only
//   - querysql compiles predicates; values and JSON paths are bound, never
//     interpolated
//
// Backend parity
//   - Every connection registers tally_num, tally_julian, tally_fold and
//     regexp (see DriverName) so SQL evaluation follows the same rules as
//     the in-memory records.Collection
//   - Sums are accumulated in Go with shopspring/decimal, in id order
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
