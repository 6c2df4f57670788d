// Package ir holds the canonical intermediate representation of query
// definitions and the canonical JSON encoding used for hashing and golden
// output.
//
// ir sits just above the leaf packages (compare) and imports nothing else
// internal. The compiler produces QuerySpec values from CUE or YAML and
// pipeline construction consumes them.
//
// Key design constraints:
//   - Dates stay strings until the compiler parses them, so a spec survives a
//     JSON round trip unchanged
//   - All JSON tags use snake_case
//   - MarshalCanonical output is stable across runs (sorted keys, NFC strings)
package ir
