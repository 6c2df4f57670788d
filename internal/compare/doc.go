// Package compare provides the predicate evaluators used by filter and group
// stages.
//
// Two families of condition live here:
//
//   - Range comparisons (NumberRange, DateRange): a set of optional bounds
//     lt/gt/lte/gte/eq. A value matches a range when every present bound
//     holds. An absent bound is always satisfied, so a range with no bounds
//     matches everything (vacuous truth). A value matches a slice of ranges
//     when it matches at least one of them.
//
//   - String operators (StringSpec, StringMatch): operator objects such as
//     {"is": "Eggs"} or {"leftnocase": "br"}. Only operators on the Whitelist
//     survive Sanitize; everything else (labels, typos, unsupported
//     operators) is dropped before the condition reaches a record store.
//
// DATA ERRORS:
//
// A missing or unparsable record value never raises an error. It fails any
// range that has bounds and passes any range that has none. Callers that
// configure empty ranges get unfiltered results.
package compare
