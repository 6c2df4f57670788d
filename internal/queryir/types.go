package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/tally/internal/compare"
)

// Predicate represents a filter condition over records.
//
// This is a sealed interface - only types in this package implement it.
// Predicate types:
//   - StringMatch: whitelisted string operators on one field
//   - NumberIn: number ranges on one field
//   - DateIn: date ranges on one field
//   - And: all predicates must be true
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
	fmt.Stringer
}

// StringMatch matches a field against sanitised string operators.
//
// Semantics:
//
//	op1(field, v1a) OR op1(field, v1b) ...
//	AND op2(field, v2a) ...
//
// Matches must already be sanitised (see compare.Sanitize). An empty Matches
// slice is always true.
//
// Example:
//
//	StringMatch{Field: "food", Matches: []compare.StringMatch{{Op: "is", Values: []string{"Eggs"}}}}
type StringMatch struct {
	Field   string                // Record field (dotted paths allowed)
	Matches []compare.StringMatch // Sanitised operators
}

func (StringMatch) predicateNode() {}

func (p StringMatch) String() string {
	parts := make([]string, 0, len(p.Matches))
	for _, m := range p.Matches {
		parts = append(parts, fmt.Sprintf("%s %s %q", p.Field, m.Op, m.Values))
	}
	if len(parts) == 0 {
		return "true"
	}
	return strings.Join(parts, " AND ")
}

// NewStringMatch sanitises spec and returns the predicate for field.
func NewStringMatch(field string, spec compare.StringSpec) StringMatch {
	return StringMatch{Field: field, Matches: compare.Sanitize(spec)}
}

// NumberIn matches when the field's numeric value falls in any range.
//
// Semantics:
//
//	range1(field) OR range2(field) OR ...
//
// An empty Ranges slice never matches.
type NumberIn struct {
	Field  string
	Ranges []compare.NumberRange
}

func (NumberIn) predicateNode() {}

func (p NumberIn) String() string {
	parts := make([]string, 0, len(p.Ranges))
	for _, r := range p.Ranges {
		parts = append(parts, r.String())
	}
	return fmt.Sprintf("%s in [%s]", p.Field, strings.Join(parts, " | "))
}

// DateIn matches when the field's date value falls in any range.
//
// With Julian set the stored value is a Julian day number rather than a date.
// An empty Ranges slice never matches.
type DateIn struct {
	Field  string
	Ranges []compare.DateRange
	Julian bool
}

func (DateIn) predicateNode() {}

func (p DateIn) String() string {
	parts := make([]string, 0, len(p.Ranges))
	for _, r := range p.Ranges {
		parts = append(parts, r.String())
	}
	mode := "date"
	if p.Julian {
		mode = "julian"
	}
	return fmt.Sprintf("%s %s in [%s]", p.Field, mode, strings.Join(parts, " | "))
}

// And is a conjunction of predicates. Empty Predicates is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

func (p And) String() string {
	if len(p.Predicates) == 0 {
		return "true"
	}
	parts := make([]string, 0, len(p.Predicates))
	for _, sub := range p.Predicates {
		parts = append(parts, "("+sub.String()+")")
	}
	return strings.Join(parts, " AND ")
}

// Conjoin appends next to base, flattening nested And values. A nil base
// returns next unchanged.
func Conjoin(base, next Predicate) Predicate {
	if base == nil {
		return next
	}
	if next == nil {
		return base
	}
	var preds []Predicate
	for _, p := range []Predicate{base, next} {
		if a, ok := p.(And); ok {
			preds = append(preds, a.Predicates...)
		} else {
			preds = append(preds, p)
		}
	}
	return And{Predicates: preds}
}
