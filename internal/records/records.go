// Package records defines the record model and the Handle contract that
// pipeline stages run against, plus an in-memory implementation.
//
// A Handle is an immutable view over a set of records. Filtering returns a
// new Handle and never changes the receiver, so a group stage can derive any
// number of sub-collections from the same parent.
package records

import (
	"context"
	"strings"

	"github.com/roach88/tally/internal/queryir"
)

// Record is one row of the collection: a JSON-like object.
type Record map[string]any

// Field resolves name against the record. Dotted names ("meal.name") walk
// nested objects. The second result is false when any segment is missing.
func (r Record) Field(name string) (any, bool) {
	if v, ok := r[name]; ok {
		return v, true
	}
	if !strings.Contains(name, ".") {
		return nil, false
	}
	var cur any = map[string]any(r)
	for _, seg := range strings.Split(name, ".") {
		switch obj := cur.(type) {
		case map[string]any:
			v, ok := obj[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case Record:
			v, ok := obj[seg]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// Handle is the record-store contract consumed by pipeline stages.
//
// Implementations:
//   - *Collection: in-memory records, predicates evaluated in Go
//   - *store.Collection: SQLite-backed records, predicates compiled to SQL
type Handle interface {
	// Filter returns a new handle restricted to records matching p.
	Filter(p queryir.Predicate) Handle

	// Sum adds the numeric values of field over the handle's records.
	// Records where field is missing or not numeric contribute nothing.
	Sum(ctx context.Context, field string) (float64, error)

	// Count returns the number of records in the handle.
	Count(ctx context.Context) (int, error)
}
