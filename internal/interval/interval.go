// Package interval generates consecutive calendar ranges for date grouping.
//
// A Period describes how many ranges to produce, how long each one is and
// which way to walk from an anchor date. The range containing the anchor is
// always part of the output, and the output is always in chronological
// order, whichever direction is walked.
package interval

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/tally/internal/compare"
)

// Type names a calendar unit.
type Type string

const (
	Year    Type = "year"
	Quarter Type = "qtr"
	Month   Type = "month"
	Week    Type = "week"
	Day     Type = "day"
)

// Period describes a sequence of calendar ranges.
//
// Zero-valued fields are treated as absent and take defaults: Type day,
// Length 1, Qty 1, Direction forward, BaseDate "now". Explicit negative
// Length or Qty, or an unknown Type, is rejected.
type Period struct {
	Type      Type      `json:"type" yaml:"type" validate:"omitempty,oneof=year qtr month week day"`
	Length    int       `json:"length" yaml:"length" validate:"gte=0"`
	Qty       int       `json:"qty" yaml:"qty" validate:"gte=0"`
	BaseDate  time.Time `json:"base_date" yaml:"base_date"`
	Direction int       `json:"direction" yaml:"direction"`
}

// ConfigError reports an invalid Period.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid period: %s %s", e.Field, e.Message)
}

// IsConfigError reports whether err is (or wraps) a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
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

// Validate checks p without applying defaults.
func (p Period) Validate() error {
	err := getValidator().Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigError{Field: "period", Message: err.Error()}
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "oneof":
		return &ConfigError{Field: fe.Field(), Message: fmt.Sprintf("%q must be one of: %s", fe.Value(), fe.Param())}
	case "gte":
		return &ConfigError{Field: fe.Field(), Message: fmt.Sprintf("must be positive, got %v", fe.Value())}
	default:
		return &ConfigError{Field: fe.Field(), Message: "is invalid"}
	}
}

// Generator produces ranges from periods. Now supplies the default anchor
// date; nil means time.Now.
type Generator struct {
	Now func() time.Time
}

// Generate is Generator{}.Generate.
func Generate(p Period) ([]compare.DateRange, error) {
	return Generator{}.Generate(p)
}

// Generate returns p.Qty ranges, each with Gte and Lt set, in ascending order.
//
// Algorithm:
//  1. Snap BaseDate to the start of its unit (Jan 1, quarter start, first of
//     month, the preceding Sunday). Day periods keep BaseDate as is.
//  2. The first end boundary is one increment forward, whatever the
//     direction, so the unit containing BaseDate is always included.
//  3. Walking backward swaps the two boundaries and fills the output from the
//     last slot down, so callers always see chronological order.
func (g Generator) Generate(p Period) ([]compare.DateRange, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = g.withDefaults(p)

	start := normalize(p.Type, p.BaseDate)
	end := increment(p.Type, start, p.Length)

	step := p.Length * p.Direction
	if p.Direction < 0 {
		start, end = end, start
	}

	out := make([]compare.DateRange, p.Qty)
	for n := 0; n < p.Qty; n++ {
		i := n
		lo, hi := start, end
		if p.Direction < 0 {
			i = p.Qty - 1 - n
			lo, hi = end, start
		}
		out[i] = compare.DateRange{Gte: compare.Date(lo), Lt: compare.Date(hi)}

		start = end
		end = increment(p.Type, start, step)
	}
	return out, nil
}

func (g Generator) withDefaults(p Period) Period {
	if p.Type == "" {
		p.Type = Day
	}
	if p.Length == 0 {
		p.Length = 1
	}
	if p.Qty == 0 {
		p.Qty = 1
	}
	if p.Direction < 0 {
		p.Direction = -1
	} else {
		p.Direction = 1
	}
	if p.BaseDate.IsZero() {
		now := time.Now
		if g.Now != nil {
			now = g.Now
		}
		p.BaseDate = now()
	}
	return p
}

// normalize snaps t to the start of the unit containing it. Days are not
// snapped: the first day range starts at t itself and ends at the next
// midnight.
func normalize(typ Type, t time.Time) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch typ {
	case Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	case Quarter:
		return time.Date(y, m-(m-1)%3, 1, 0, 0, 0, 0, loc)
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case Week:
		return time.Date(y, m, d-int(t.Weekday()), 0, 0, 0, 0, loc)
	default:
		return t
	}
}

// increment moves t by n units (n may be negative) and drops the time of
// day. Calendar fields overflow the way time.Date normalizes them.
func increment(typ Type, t time.Time, n int) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch typ {
	case Year:
		return time.Date(y+n, m, d, 0, 0, 0, 0, loc)
	case Quarter:
		return time.Date(y, m+time.Month(3*n), d, 0, 0, 0, 0, loc)
	case Month:
		return time.Date(y, m+time.Month(n), d, 0, 0, 0, 0, loc)
	case Week:
		return time.Date(y, m, d+7*n, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d+n, 0, 0, 0, 0, loc)
	}
}
