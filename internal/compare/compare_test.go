package compare

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberRange_EmptyMatchesEverything(t *testing.T) {
	r := NumberRange{}
	for _, v := range []float64{-1e9, -1, 0, 0.5, 42, 1e9} {
		assert.True(t, r.Matches(v), "empty range must match %v", v)
	}
	assert.True(t, r.IsEmpty())
}

func TestNumberRange_BoundsAreConjunctive(t *testing.T) {
	r := NumberRange{Gte: Num(8), Lt: Num(9)}

	testCases := []struct {
		v    float64
		want bool
	}{
		{7.99, false},
		{8, true},
		{8.5, true},
		{9, false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, r.Matches(tc.v), "value %v", tc.v)
	}
}

func TestNumberRange_Eq(t *testing.T) {
	r := NumberRange{Eq: Num(10)}
	assert.True(t, r.Matches(10))
	assert.False(t, r.Matches(10.0001))
}

func TestMatchAnyNumber_OrSemantics(t *testing.T) {
	testCases := []struct {
		name   string
		ranges []NumberRange
		v      float64
		want   bool
	}{
		{
			name:   "disjoint, hits first",
			ranges: []NumberRange{{Gte: Num(8), Lt: Num(9)}, {Lt: Num(0)}, {Eq: Num(10)}},
			v:      8.5,
			want:   true,
		},
		{
			name:   "disjoint, hits second",
			ranges: []NumberRange{{Gte: Num(8), Lt: Num(9)}, {Lt: Num(0)}, {Eq: Num(10)}},
			v:      -3,
			want:   true,
		},
		{
			name:   "disjoint, misses all",
			ranges: []NumberRange{{Gte: Num(8), Lt: Num(9)}, {Lt: Num(0)}, {Eq: Num(10)}},
			v:      5,
			want:   false,
		},
		{
			name:   "overlapping, in both",
			ranges: []NumberRange{{Gte: Num(0), Lt: Num(10)}, {Gte: Num(5), Lt: Num(15)}},
			v:      7,
			want:   true,
		},
		{
			name:   "overlapping, only second",
			ranges: []NumberRange{{Gte: Num(0), Lt: Num(10)}, {Gte: Num(5), Lt: Num(15)}},
			v:      12,
			want:   true,
		},
		{
			name:   "empty slice matches nothing",
			ranges: nil,
			v:      1,
			want:   false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchAnyNumber(tc.ranges, tc.v))
		})
	}
}

func TestMatchAnyNumberValue_NonNumeric(t *testing.T) {
	bounded := []NumberRange{{Gt: Num(0)}}
	assert.False(t, MatchAnyNumberValue(bounded, "abc"))
	assert.False(t, MatchAnyNumberValue(bounded, nil))
	assert.True(t, MatchAnyNumberValue(bounded, "3"))
	assert.True(t, MatchAnyNumberValue(bounded, 3))

	assert.True(t, MatchAnyNumberValue([]NumberRange{{}}, nil), "empty range is vacuously true")
}

func TestToFloat_GoNumericTypes(t *testing.T) {
	values := []any{
		int(7), int8(7), int16(7), int32(7), int64(7),
		uint(7), uint8(7), uint16(7), uint32(7), uint64(7),
		float32(7), float64(7), json.Number("7"), " 7 ",
	}
	for _, v := range values {
		f, ok := ToFloat(v)
		assert.True(t, ok, "%T", v)
		assert.Equal(t, 7.0, f, "%T", v)
		assert.True(t, MatchAnyNumberValue([]NumberRange{{Gte: Num(7), Lt: Num(8)}}, v), "%T", v)
	}

	_, ok := ToFloat(json.Number("seven"))
	assert.False(t, ok)
	_, ok = ToFloat(true)
	assert.False(t, ok)
}

func TestNumberRange_String(t *testing.T) {
	assert.Equal(t, ">=8 <9", NumberRange{Gte: Num(8), Lt: Num(9)}.String())
	assert.Equal(t, "=10", NumberRange{Eq: Num(10)}.String())
	assert.Equal(t, "*", NumberRange{}.String())
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateRange_Matches(t *testing.T) {
	r := DateRange{Gte: Date(day(2024, 2, 1)), Lt: Date(day(2024, 3, 1))}

	assert.True(t, r.Matches(day(2024, 2, 1)))
	assert.True(t, r.Matches(day(2024, 2, 29)))
	assert.False(t, r.Matches(day(2024, 3, 1)))
	assert.False(t, r.Matches(day(2024, 1, 31)))
	assert.True(t, DateRange{}.Matches(day(1900, 1, 1)))
}

func TestJulianDay(t *testing.T) {
	assert.InDelta(t, 2440587.5, JulianDay(day(1970, 1, 1)), 1e-9)
	assert.InDelta(t, 2451544.5, JulianDay(day(2000, 1, 1)), 1e-9)
}

func TestMatchAnyDate(t *testing.T) {
	ranges := []DateRange{
		{Gte: Date(day(2024, 1, 1)), Lt: Date(day(2024, 2, 1))},
		{Eq: Date(day(2024, 6, 15))},
	}

	testCases := []struct {
		name   string
		v      any
		julian bool
		want   bool
	}{
		{"time value", day(2024, 1, 10), false, true},
		{"date string", "2024-06-15", false, true},
		{"rfc3339 string", "2024-01-31T23:59:59Z", false, true},
		{"outside", "2024-03-01", false, false},
		{"julian number", JulianDay(day(2024, 1, 2)), true, true},
		{"julian outside", JulianDay(day(2023, 12, 31)), true, false},
		{"unparsable", "not a date", false, false},
		{"missing", nil, false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchAnyDate(ranges, tc.v, tc.julian))
		})
	}
}

func TestMatchAnyDate_EmptyRangeIsVacuous(t *testing.T) {
	assert.True(t, MatchAnyDate([]DateRange{{}}, nil, false))
	assert.True(t, MatchAnyDate([]DateRange{{}}, "garbage", false))
}

func TestDateRange_String(t *testing.T) {
	r := DateRange{Gte: Date(day(2024, 2, 1)), Lt: Date(day(2024, 3, 1))}
	assert.Equal(t, ">=2024-02-01 <2024-03-01", r.String())
}

func TestSanitize_DropsNonWhitelisted(t *testing.T) {
	spec := StringSpec{
		"is":       "Eggs",
		"label":    "Eggs",
		"exec":     "rm -rf",
		"likenope": "x",
	}

	got := Sanitize(spec)

	require.Len(t, got, 1)
	assert.Equal(t, StringMatch{Op: "is", Values: []string{"Eggs"}}, got[0])
	assert.Len(t, spec, 4, "input must not be mutated")
}

func TestSanitize_SortedAndMultiValued(t *testing.T) {
	spec := StringSpec{
		"right": "s",
		"left":  []any{"E", "T"},
	}

	got := Sanitize(spec)

	require.Len(t, got, 2)
	assert.Equal(t, "left", got[0].Op)
	assert.Equal(t, []string{"E", "T"}, got[0].Values)
	assert.Equal(t, "right", got[1].Op)
}

func TestSanitize_EveryWhitelistedOperatorSurvives(t *testing.T) {
	for _, op := range Whitelist {
		got := Sanitize(StringSpec{op: "v"})
		require.Len(t, got, 1, op)
		assert.Equal(t, op, got[0].Op)
	}
}

func TestWrapStrings(t *testing.T) {
	labelled := WrapStrings("is", []string{"Eggs", "Toast"}, true)
	require.Len(t, labelled, 2)
	assert.Equal(t, "Eggs", labelled[0].Label())
	assert.Equal(t, "Toast", labelled[1].Value())

	plain := WrapStrings("like", []string{"Ph"}, false)
	assert.Equal(t, "", plain[0].Label())
	assert.Equal(t, "Ph", plain[0].Value())
}
