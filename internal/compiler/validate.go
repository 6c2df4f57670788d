package compiler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/tally/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedSpec = "E100" // unsupported type for validation

	// QuerySpec errors (E101-E105)
	ErrMissingSource = "E101" // source is required
	ErrNoStages      = "E102" // at least one stage required
	ErrStageKind     = "E103" // stage must set exactly one of filter, group, value
	ErrValueNotLast  = "E104" // value stage followed by another stage
	ErrGroupLast     = "E105" // group stage with nothing after it

	// Stage parameter errors (E106-E111)
	ErrComparison      = "E106" // filter/group must set exactly one comparison list
	ErrInvalidDate     = "E107" // date bound does not parse
	ErrInvalidPeriod   = "E108" // period rejected by the interval generator
	ErrInvalidTemplate = "E109" // label template does not parse
	ErrInvalidValue    = "E110" // value must set exactly one of sum, count
	ErrInvalidFormat   = "E111" // unknown formatter or bad palette color
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the shared validator, reporting json tag names.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate validates a compiled query against schema rules.
// Returns all errors found (does not fail-fast), in stage order.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.QuerySpec:
		return validateQuerySpec(spec)
	case ir.QuerySpec:
		return validateQuerySpec(&spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedSpec,
		}}
	}
}

func validateQuerySpec(spec *ir.QuerySpec) []ValidationError {
	errs := structErrors(spec)

	last := len(spec.Stages) - 1
	for i, stage := range spec.Stages {
		path := fmt.Sprintf("stages[%d]", i)

		// E103: exactly one kind per stage
		kinds := stage.Kinds()
		if len(kinds) != 1 {
			msg := "stage must set one of filter, group, value"
			if len(kinds) > 1 {
				msg = fmt.Sprintf("stage sets %s; only one is allowed", strings.Join(kinds, " and "))
			}
			errs = append(errs, ValidationError{Field: path, Message: msg, Code: ErrStageKind})
			continue
		}

		switch {
		case stage.Filter != nil:
			errs = append(errs, validateFilter(stage.Filter, path+".filter")...)
		case stage.Group != nil:
			errs = append(errs, validateGroup(stage.Group, path+".group")...)
			// E105: a group needs something to compute its values
			if i == last {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: "a group stage must be followed by another stage",
					Code:    ErrGroupLast,
				})
			}
		case stage.Value != nil:
			errs = append(errs, validateValue(stage.Value, path+".value")...)
			// E104: value ends the chain
			if i != last {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: "a value stage must be the last stage",
					Code:    ErrValueNotLast,
				})
			}
		}
	}
	return errs
}

// structErrors runs the struct tags through the shared validator.
func structErrors(spec *ir.QuerySpec) []ValidationError {
	err := getValidator().Struct(spec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{Field: "query", Message: err.Error(), Code: ErrUnsupportedSpec}}
	}

	var errs []ValidationError
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "QuerySpec.")
		ve := ValidationError{Field: field}
		switch {
		case field == "source":
			ve.Code, ve.Message = ErrMissingSource, "source is required"
		case field == "stages":
			ve.Code, ve.Message = ErrNoStages, "at least one stage is required"
		case fe.Tag() == "oneof":
			ve.Code, ve.Message = ErrInvalidFormat, fmt.Sprintf("%q must be one of: %s", fe.Value(), fe.Param())
		case fe.Tag() == "hexcolor":
			ve.Code, ve.Message = ErrInvalidFormat, fmt.Sprintf("%q is not a hex color", fe.Value())
		default:
			ve.Code, ve.Message = ErrUnsupportedSpec, fmt.Sprintf("failed %q check", fe.Tag())
		}
		errs = append(errs, ve)
	}
	return errs
}

func validateFilter(f *ir.FilterSpec, path string) []ValidationError {
	var errs []ValidationError

	// E106: exactly one comparison list
	if n := countSet(len(f.String) > 0, len(f.Numbers) > 0, len(f.Dates) > 0); n != 1 {
		errs = append(errs, ValidationError{
			Field:   path,
			Message: "filter must set exactly one of string, numbers, dates",
			Code:    ErrComparison,
		})
	}
	errs = append(errs, validateDates(f.Dates, path+".dates")...)
	return errs
}

func validateGroup(g *ir.GroupSpec, path string) []ValidationError {
	var errs []ValidationError

	// E106: exactly one source of group values
	if n := countSet(len(g.Strings) > 0, len(g.Numbers) > 0, len(g.Dates) > 0, g.Period != nil); n != 1 {
		errs = append(errs, ValidationError{
			Field:   path,
			Message: "group must set exactly one of strings, numbers, dates, period",
			Code:    ErrComparison,
		})
	}
	errs = append(errs, validateDates(g.Dates, path+".dates")...)

	// E108: period must generate ranges
	if g.Period != nil {
		if _, err := toPeriod(g.Period); err != nil {
			errs = append(errs, ValidationError{Field: path + ".period", Message: err.Error(), Code: ErrInvalidPeriod})
		}
	}

	// E109: label template must parse
	if g.Label != "" {
		if _, err := parseLabel(g.Label); err != nil {
			errs = append(errs, ValidationError{Field: path + ".label", Message: err.Error(), Code: ErrInvalidTemplate})
		}
	}
	return errs
}

func validateDates(dates []ir.DateBounds, path string) []ValidationError {
	var errs []ValidationError
	for i, d := range dates {
		// E107: every bound must parse
		if _, err := toDateRange(d); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", path, i),
				Message: err.Error(),
				Code:    ErrInvalidDate,
			})
		}
	}
	return errs
}

func validateValue(v *ir.ValueSpec, path string) []ValidationError {
	// E110: exactly one aggregate
	if countSet(v.Sum != "", v.Count) != 1 {
		return []ValidationError{{
			Field:   path,
			Message: "value must set exactly one of sum, count",
			Code:    ErrInvalidValue,
		}}
	}
	return nil
}

func countSet(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
