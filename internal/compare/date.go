package compare

import (
	"strings"
	"time"
)

// julianEpoch is the Julian day number of 1970-01-01T00:00:00Z.
const julianEpoch = 2440587.5

const msPerDay = 86400000.0

// DateLayouts are the string layouts accepted for date values, tried in order.
var DateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DateRange is a comparison object over dates.
//
// Comparison happens in Julian day space, so two instants compare equal
// only when they are the same millisecond.
type DateRange struct {
	Lt  *time.Time `json:"lt,omitempty" yaml:"lt,omitempty"`
	Gt  *time.Time `json:"gt,omitempty" yaml:"gt,omitempty"`
	Lte *time.Time `json:"lte,omitempty" yaml:"lte,omitempty"`
	Gte *time.Time `json:"gte,omitempty" yaml:"gte,omitempty"`
	Eq  *time.Time `json:"eq,omitempty" yaml:"eq,omitempty"`
}

// Date returns a pointer to t.
func Date(t time.Time) *time.Time {
	return &t
}

// JulianDay converts t to a (fractional) Julian day number.
func JulianDay(t time.Time) float64 {
	return float64(t.UnixMilli())/msPerDay + julianEpoch
}

// IsEmpty reports whether no bound is set.
func (r DateRange) IsEmpty() bool {
	return r.Lt == nil && r.Gt == nil && r.Lte == nil && r.Gte == nil && r.Eq == nil
}

// Matches reports whether t satisfies every present bound.
func (r DateRange) Matches(t time.Time) bool {
	return r.MatchesJulian(JulianDay(t))
}

// MatchesJulian reports whether the Julian day number jd satisfies every
// present bound.
func (r DateRange) MatchesJulian(jd float64) bool {
	return r.Julian().Matches(jd)
}

// Julian projects the range into Julian day space.
func (r DateRange) Julian() NumberRange {
	conv := func(t *time.Time) *float64 {
		if t == nil {
			return nil
		}
		return Num(JulianDay(*t))
	}
	return NumberRange{
		Lt:  conv(r.Lt),
		Gt:  conv(r.Gt),
		Lte: conv(r.Lte),
		Gte: conv(r.Gte),
		Eq:  conv(r.Eq),
	}
}

// MatchAnyDate reports whether the record value v matches at least one range.
//
// With julian set, v must already be a Julian day number. Otherwise v must be
// a time.Time or a string in one of DateLayouts. A value that cannot be read
// only matches ranges with no bounds.
func MatchAnyDate(ranges []DateRange, v any, julian bool) bool {
	jd, ok := toJulian(v, julian)
	for _, r := range ranges {
		if !ok {
			if r.IsEmpty() {
				return true
			}
			continue
		}
		if r.MatchesJulian(jd) {
			return true
		}
	}
	return false
}

func toJulian(v any, julian bool) (float64, bool) {
	if julian {
		return ToFloat(v)
	}
	t, ok := ToTime(v)
	if !ok {
		return 0, false
	}
	return JulianDay(t), true
}

// ToTime converts a record value to a time.Time.
func ToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range DateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// String renders the present bounds using dates (or RFC 3339 when a bound
// carries a time of day). An empty range renders "*".
func (r DateRange) String() string {
	var parts []string
	add := func(op string, t *time.Time) {
		if t != nil {
			parts = append(parts, op+FormatDate(*t))
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

// FormatDate renders t as 2006-01-02 when it falls on midnight, RFC 3339 otherwise.
func FormatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
