package compare

import (
	"fmt"
	"slices"
	"sort"
)

// Whitelist is the fixed set of string operators a record store is allowed
// to see. Keys outside this list are dropped by Sanitize.
var Whitelist = []string{
	"regex", "left", "leftnocase", "right", "rightnocase", "like",
	"is", "isnocase", "has", "hasall", "lt", "gt", "lte", "gte",
}

// LabelKey is the conventional key carrying a display label inside a
// StringSpec. It is not an operator and never survives Sanitize.
const LabelKey = "label"

// IsWhitelisted reports whether op is an allowed string operator.
func IsWhitelisted(op string) bool {
	return slices.Contains(Whitelist, op)
}

// StringSpec is a string comparison object as written by callers, e.g.
// {"is": "Eggs", "label": "Eggs"}. Values are a string or a list of strings.
type StringSpec map[string]any

// StringMatch is one sanitised operator with its test values.
// A record matches when any of Values satisfies Op.
type StringMatch struct {
	Op     string   `json:"op"`
	Values []string `json:"values"`
}

// Label returns the label key, or "" when it is missing or not a string.
func (s StringSpec) Label() string {
	if l, ok := s[LabelKey].(string); ok {
		return l
	}
	return ""
}

// Value returns the first test value of the first whitelisted operator, in
// Whitelist order. Useful for labels: {"is": "Eggs"} yields "Eggs".
func (s StringSpec) Value() string {
	for _, op := range Whitelist {
		if v, ok := s[op]; ok {
			if vals := toStrings(v); len(vals) > 0 {
				return vals[0]
			}
		}
	}
	return ""
}

// Sanitize returns the whitelisted operators of spec, sorted by operator name.
// Non-whitelisted keys and values that are not strings are dropped. The
// input is never modified.
func Sanitize(spec StringSpec) []StringMatch {
	ops := make([]string, 0, len(spec))
	for k := range spec {
		if IsWhitelisted(k) {
			ops = append(ops, k)
		}
	}
	sort.Strings(ops)

	matches := make([]StringMatch, 0, len(ops))
	for _, op := range ops {
		vals := toStrings(spec[op])
		if len(vals) == 0 {
			continue
		}
		matches = append(matches, StringMatch{Op: op, Values: vals})
	}
	return matches
}

// WrapStrings builds one StringSpec per value using operator op.
// With label set, each spec carries its value under LabelKey; otherwise the
// label is "".
func WrapStrings(op string, values []string, label bool) []StringSpec {
	specs := make([]StringSpec, 0, len(values))
	for _, v := range values {
		spec := StringSpec{op: v, LabelKey: ""}
		if label {
			spec[LabelKey] = v
		}
		specs = append(specs, spec)
	}
	return specs
}

func toStrings(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return slices.Clone(val)
	case []any:
		out := make([]string, 0, len(val))
		for _, elem := range val {
			switch e := elem.(type) {
			case string:
				out = append(out, e)
			case fmt.Stringer:
				out = append(out, e.String())
			}
		}
		return out
	default:
		return nil
	}
}
