package queryir

import (
	"fmt"
	"regexp"
	"sync"
)

// ValidationResult contains pushdown and widening analysis of a predicate.
type ValidationResult struct {
	// Pushdown is false when the SQL backend needs connection-level helpers
	// (the REGEXP function) to evaluate the predicate.
	Pushdown bool

	// Warnings lists conditions that are legal but probably unintended,
	// such as an empty field name or a range without bounds.
	Warnings []string
}

// Validate inspects a predicate for configurations that silently widen or
// empty result sets and for features that need backend support.
//
// Rules:
//  1. Empty field - the record store looks up the "" key, which almost never exists
//  2. Range without bounds - matches every record (vacuous truth)
//  3. No ranges - matches no record
//  4. Invalid regex - matches no record
//  5. regex operator - requires the REGEXP function on SQLite connections
//
// Validate is a pure function with no side effects.
func Validate(p Predicate) ValidationResult {
	v := &validator{
		warnings: []string{},
		pushdown: true,
	}
	v.validatePredicate(p)

	return ValidationResult{
		Pushdown: v.pushdown,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
	pushdown bool
}

// addWarning appends a warning message.
func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// validatePredicate recursively validates a predicate node.
func (v *validator) validatePredicate(p Predicate) {
	if p == nil {
		return // nil predicates are valid (no filter)
	}

	switch pred := p.(type) {
	case StringMatch:
		v.validateField(pred.Field)
		v.validateStringMatch(pred)
	case NumberIn:
		v.validateField(pred.Field)
		if len(pred.Ranges) == 0 {
			v.addWarning("Field '%s' has no number ranges - no record can match", pred.Field)
		}
		for i, r := range pred.Ranges {
			if r.IsEmpty() {
				v.addWarning("Field '%s' range %d has no bounds - every record matches", pred.Field, i)
			}
		}
	case DateIn:
		v.validateField(pred.Field)
		if len(pred.Ranges) == 0 {
			v.addWarning("Field '%s' has no date ranges - no record can match", pred.Field)
		}
		for i, r := range pred.Ranges {
			if r.IsEmpty() {
				v.addWarning("Field '%s' range %d has no bounds - every record matches", pred.Field, i)
			}
		}
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addWarning("Unknown predicate type: %T", p)
	}
}

func (v *validator) validateField(field string) {
	if field == "" {
		v.addWarning("Empty field name - filtering on the \"\" key")
	}
}

func (v *validator) validateStringMatch(p StringMatch) {
	if len(p.Matches) == 0 {
		v.addWarning("Field '%s' has no whitelisted string operators - every record matches", p.Field)
	}
	for _, m := range p.Matches {
		if m.Op != "regex" {
			continue
		}
		v.pushdown = false
		for _, expr := range m.Values {
			if _, err := CompileRegex(expr); err != nil {
				v.addWarning("Field '%s' regex %q does not compile: %v", p.Field, expr, err)
			}
		}
	}
}

// StripRegexDelimiters turns "/^Ph/i" into "(?i)^Ph". Plain patterns are
// returned unchanged.
func StripRegexDelimiters(expr string) string {
	if len(expr) < 2 || expr[0] != '/' {
		return expr
	}
	end := len(expr) - 1
	for end > 0 && expr[end] != '/' {
		end--
	}
	if end == 0 {
		return expr
	}
	body, flags := expr[1:end], expr[end+1:]
	prefix := ""
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			prefix += string(f)
		}
	}
	if prefix != "" {
		return "(?" + prefix + ")" + body
	}
	return body
}

var regexCache sync.Map // string → *regexp.Regexp

// CompileRegex compiles a regex operand (delimited or plain) and caches the
// result. Both record backends share the cache.
func CompileRegex(expr string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Load(expr); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(StripRegexDelimiters(expr))
	if err != nil {
		return nil, err
	}
	regexCache.Store(expr, re)
	return re, nil
}
