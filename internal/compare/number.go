package compare

import (
	"encoding/json"
	"strconv"
	"strings"
)

// NumberRange is a comparison object over numbers.
//
// Semantics:
//
//	(Lt == nil || v < *Lt) && (Gt == nil || v > *Gt) &&
//	(Lte == nil || v <= *Lte) && (Gte == nil || v >= *Gte) &&
//	(Eq == nil || v == *Eq)
type NumberRange struct {
	Lt  *float64 `json:"lt,omitempty" yaml:"lt,omitempty"`
	Gt  *float64 `json:"gt,omitempty" yaml:"gt,omitempty"`
	Lte *float64 `json:"lte,omitempty" yaml:"lte,omitempty"`
	Gte *float64 `json:"gte,omitempty" yaml:"gte,omitempty"`
	Eq  *float64 `json:"eq,omitempty" yaml:"eq,omitempty"`
}

// Num returns a pointer to n. Shorthand for building ranges in code.
func Num(n float64) *float64 {
	return &n
}

// IsEmpty reports whether no bound is set.
func (r NumberRange) IsEmpty() bool {
	return r.Lt == nil && r.Gt == nil && r.Lte == nil && r.Gte == nil && r.Eq == nil
}

// Matches reports whether v satisfies every present bound.
func (r NumberRange) Matches(v float64) bool {
	if r.Lt != nil && !(v < *r.Lt) {
		return false
	}
	if r.Gt != nil && !(v > *r.Gt) {
		return false
	}
	if r.Lte != nil && !(v <= *r.Lte) {
		return false
	}
	if r.Gte != nil && !(v >= *r.Gte) {
		return false
	}
	if r.Eq != nil && v != *r.Eq {
		return false
	}
	return true
}

// MatchAnyNumber reports whether v matches at least one range.
// An empty slice matches nothing.
func MatchAnyNumber(ranges []NumberRange, v float64) bool {
	for _, r := range ranges {
		if r.Matches(v) {
			return true
		}
	}
	return false
}

// MatchAnyNumberValue is MatchAnyNumber for raw record values. A value that
// is not numeric only matches ranges with no bounds.
func MatchAnyNumberValue(ranges []NumberRange, v any) bool {
	f, ok := ToFloat(v)
	if ok {
		return MatchAnyNumber(ranges, f)
	}
	for _, r := range ranges {
		if r.IsEmpty() {
			return true
		}
	}
	return false
}

// String renders the present bounds, e.g. ">=8 <9". An empty range renders "*".
func (r NumberRange) String() string {
	var parts []string
	add := func(op string, p *float64) {
		if p != nil {
			parts = append(parts, op+strconv.FormatFloat(*p, 'g', -1, 64))
		}
	}
	add("=", r.Eq)
	add(">", r.Gt)
	add(">=", r.Gte)
	add("<", r.Lt)
	add("<=", r.Lte)
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

// ToFloat converts a record value to a float64.
// Accepts Go numeric types and numeric strings; everything else reports false.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
