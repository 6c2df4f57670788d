// Package queryir provides the declarative predicate representation handed
// from pipeline stages to record stores.
//
// Filter and group stages never evaluate records themselves. They build a
// Predicate and ask the record store for a narrower handle. Each store
// decides how to evaluate it:
//
//	[filter/group stage] → [Predicate] → [records.Collection] (Go evaluation)
//	                                   → [querysql → SQLite]  (pushed down)
//
// PREDICATES:
//
//   - StringMatch(field, matches) - sanitised string operators, AND across
//     operators, OR across the values of one operator
//   - NumberIn(field, ranges) - OR across number ranges
//   - DateIn(field, ranges, julian) - OR across date ranges
//   - And(predicates) - conjunction, empty means always true
//
// SEALED INTERFACES:
//
// Predicate is a sealed interface using the marker method pattern. Only types
// in this package implement it, so stores can switch exhaustively:
//
//	switch p := pred.(type) {
//	case StringMatch:
//	case NumberIn:
//	case DateIn:
//	case And:
//	}
//
// DATA ERRORS:
//
// Predicates never fail at evaluation time. A record missing the field, or
// holding a value of the wrong type, simply does not match a bounded
// condition. Validate reports configurations that silently widen results.
package queryir
