package records

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/tally/internal/compare"
	"github.com/roach88/tally/internal/queryir"
)

// Eval reports whether rec satisfies p. A nil predicate matches everything.
func Eval(p queryir.Predicate, rec Record) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case queryir.StringMatch:
		v, _ := rec.Field(pred.Field)
		for _, m := range pred.Matches {
			if !matchString(m, v) {
				return false
			}
		}
		return true
	case queryir.NumberIn:
		v, _ := rec.Field(pred.Field)
		return compare.MatchAnyNumberValue(pred.Ranges, v)
	case queryir.DateIn:
		v, _ := rec.Field(pred.Field)
		return compare.MatchAnyDate(pred.Ranges, v, pred.Julian)
	case queryir.And:
		for _, sub := range pred.Predicates {
			if !Eval(sub, rec) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// matchString applies one operator. Any of m.Values may satisfy it, except
// hasall which needs all of them.
func matchString(m compare.StringMatch, v any) bool {
	if m.Op == "has" || m.Op == "hasall" {
		return matchHas(m, v)
	}
	s, ok := scalarString(v)
	if !ok {
		return false
	}
	for _, test := range m.Values {
		if matchScalar(m.Op, s, test) {
			return true
		}
	}
	return false
}

func matchScalar(op, s, test string) bool {
	switch op {
	case "is":
		return s == test
	case "isnocase":
		return fold(s) == fold(test)
	case "left":
		return strings.HasPrefix(s, test)
	case "leftnocase":
		return strings.HasPrefix(fold(s), fold(test))
	case "right":
		return strings.HasSuffix(s, test)
	case "rightnocase":
		return strings.HasSuffix(fold(s), fold(test))
	case "like":
		return strings.Contains(s, test)
	case "regex":
		re, err := queryir.CompileRegex(test)
		if err != nil {
			return false
		}
		return re.MatchString(s)
	case "lt":
		return s < test
	case "gt":
		return s > test
	case "lte":
		return s <= test
	case "gte":
		return s >= test
	default:
		return false
	}
}

// matchHas handles has/hasall. An array field must contain the test values
// as elements; a string field must contain them as substrings.
func matchHas(m compare.StringMatch, v any) bool {
	contains := func(test string) bool {
		switch val := v.(type) {
		case []any:
			return slices.ContainsFunc(val, func(e any) bool {
				s, ok := scalarString(e)
				return ok && s == test
			})
		case []string:
			return slices.Contains(val, test)
		default:
			s, ok := scalarString(v)
			return ok && strings.Contains(s, test)
		}
	}
	if m.Op == "hasall" {
		for _, test := range m.Values {
			if !contains(test) {
				return false
			}
		}
		return len(m.Values) > 0
	}
	return slices.ContainsFunc(m.Values, contains)
}

// scalarString renders strings, numbers and booleans. Other values
// (missing, objects, arrays) do not take part in scalar string matching.
func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(val), true
	default:
		return "", false
	}
}

func fold(s string) string {
	return cases.Fold().String(s)
}
