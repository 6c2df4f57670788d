package compiler

import (
	"context"
	"testing"
	"time"

	"cuelang.org/go/cue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/compare"
	"github.com/roach88/tally/internal/format"
	"github.com/roach88/tally/internal/interval"
	"github.com/roach88/tally/internal/ir"
	"github.com/roach88/tally/internal/pipeline"
	"github.com/roach88/tally/internal/testutil"
)

func runSpec(t *testing.T, spec *ir.QuerySpec, opts ...BuildOption) (pipeline.Result, format.Formatter) {
	t.Helper()
	stages, f, err := Build(spec, opts...)
	require.NoError(t, err)

	entry, err := pipeline.Compose(stages...)
	require.NoError(t, err)
	result, err := pipeline.Run(context.Background(), entry, testutil.MealsCollection())
	require.NoError(t, err)
	return result, f
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}

func TestBuild_BreakfastByMonth(t *testing.T) {
	spec, err := CompileQuery(compileCUE(t, breakfastCUE).LookupPath(cue.ParsePath("query.breakfastByMonth")))
	require.NoError(t, err)

	result, f := runSpec(t, spec)
	assert.Equal(t, format.NameChart, f.Name())

	out, err := f.Format(result)
	require.NoError(t, err)
	assert.Equal(t, format.ChartOutput{
		Color: format.DefaultPalette().Colors(),
		Label: []string{"Eggs", "Toast"},
		Values: []format.Series{
			{Label: "Feb", Values: []float64{100, 0}},
			{Label: "Mar", Values: []float64{0, 130}},
			{Label: "Apr", Values: []float64{0, 0}},
		},
	}, out)
}

func TestBuild_StageTypes(t *testing.T) {
	clock := testutil.ClockAt("2024-03-10")
	spec := &ir.QuerySpec{
		Source: "meals",
		Stages: []ir.StageSpec{
			{Filter: &ir.FilterSpec{Field: "date", Dates: []ir.DateBounds{{Gte: "2024-02-01"}}}},
			{Group: &ir.GroupSpec{Field: "date", Period: &ir.PeriodSpec{Type: "month", Direction: -1, Qty: 2}}},
			{Group: &ir.GroupSpec{Field: "calories", Numbers: []compare.NumberRange{{Lt: compare.Num(200)}}}},
			{Value: &ir.ValueSpec{Count: true}},
		},
		Format: ir.FormatSpec{Kind: ir.FormatTree, RootLabel: "meals"},
	}

	stages, f, err := Build(spec, WithNow(clock.Now), WithIDs(testutil.NewSequenceIDs("")))
	require.NoError(t, err)
	require.Len(t, stages, 4)

	df := stages[0].(pipeline.DateFilter)
	assert.Equal(t, compare.DateRange{Gte: compare.Date(mustDate(t, "2024-02-01"))}, df.Ranges[0])

	dg := stages[1].(pipeline.DateGroup)
	assert.Equal(t, &interval.Period{Type: interval.Month, Qty: 2, Direction: -1}, dg.Period)
	assert.Empty(t, dg.Values)
	require.NotNil(t, dg.Now)
	assert.Equal(t, clock.Now(), dg.Now())

	ng := stages[2].(pipeline.NumberGroup)
	assert.Nil(t, ng.Label, "no template keeps the unlabeled default")

	assert.Equal(t, pipeline.Count{}, stages[3])
	assert.Equal(t, "meals", f.(format.Tree).RootLabel)
}

func TestBuild_LabelTemplates(t *testing.T) {
	testCases := []struct {
		name  string
		group ir.GroupSpec
		want  []string
	}{
		{
			name:  "string value",
			group: ir.GroupSpec{Field: "food", Strings: []compare.StringSpec{{"is": "Eggs"}, {"left": "To"}}, Label: "{{upper .Value}}"},
			want:  []string{"EGGS", "TO"},
		},
		{
			name:  "string label key",
			group: ir.GroupSpec{Field: "food", Strings: []compare.StringSpec{{"is": "Eggs", "label": "eggs!"}}, Label: "[{{.Label}}]"},
			want:  []string{"[eggs!]"},
		},
		{
			name:  "number bounds",
			group: ir.GroupSpec{Field: "calories", Numbers: []compare.NumberRange{{Lt: compare.Num(200)}, {Gte: compare.Num(200)}}, Label: "{{.String}}"},
			want:  []string{"<200", ">=200"},
		},
		{
			name:  "num helper",
			group: ir.GroupSpec{Field: "calories", Numbers: []compare.NumberRange{{Gte: compare.Num(80.5)}}, Label: "from {{num .Gte}}{{num .Lt}}"},
			want:  []string{"from 80.5"},
		},
		{
			name:  "date helper",
			group: ir.GroupSpec{Field: "date", Dates: []ir.DateBounds{{Gte: "2024-02-01", Lt: "2024-03-01"}}, Label: `{{date "2006-01" .Gte}}..{{date "2006-01" .Lt}}`},
			want:  []string{"2024-02..2024-03"},
		},
		{
			name:  "failing template",
			group: ir.GroupSpec{Field: "date", Dates: []ir.DateBounds{{Lt: "2024-03-01"}}, Label: `{{.Gte.Format "Jan"}}`},
			want:  []string{pipeline.UnlabeledLabel},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			group := tc.group
			spec := &ir.QuerySpec{
				Source: "meals",
				Stages: []ir.StageSpec{{Group: &group}, {Value: &ir.ValueSpec{Count: true}}},
			}
			result, _ := runSpec(t, spec)
			assert.Equal(t, tc.want, result.(pipeline.Tree).Labels())
		})
	}
}

func TestBuild_RejectsInvalidSpecs(t *testing.T) {
	count := ir.StageSpec{Value: &ir.ValueSpec{Count: true}}

	testCases := []struct {
		name  string
		spec  ir.QuerySpec
		field string
		code  string
	}{
		{
			name:  "no source",
			spec:  ir.QuerySpec{Stages: []ir.StageSpec{count}},
			field: "source",
			code:  ErrMissingSource,
		},
		{
			name:  "empty stage",
			spec:  ir.QuerySpec{Source: "m", Stages: []ir.StageSpec{{}, count}},
			field: "stages[0]",
			code:  ErrStageKind,
		},
		{
			name:  "group last",
			spec:  ir.QuerySpec{Source: "m", Stages: []ir.StageSpec{{Group: &ir.GroupSpec{Field: "f", Strings: []compare.StringSpec{{"is": "x"}}}}}},
			field: "stages[0]",
			code:  ErrGroupLast,
		},
		{
			name: "filter with two comparisons",
			spec: ir.QuerySpec{Source: "m", Stages: []ir.StageSpec{
				{Filter: &ir.FilterSpec{Field: "f", String: compare.StringSpec{"is": "x"}, Numbers: []compare.NumberRange{{}}}},
				count,
			}},
			field: "stages[0].filter",
			code:  ErrComparison,
		},
		{
			name: "group with dates and period",
			spec: ir.QuerySpec{Source: "m", Stages: []ir.StageSpec{
				{Group: &ir.GroupSpec{Field: "d", Dates: []ir.DateBounds{{}}, Period: &ir.PeriodSpec{}}},
				count,
			}},
			field: "stages[0].group",
			code:  ErrComparison,
		},
		{
			name: "bad period",
			spec: ir.QuerySpec{Source: "m", Stages: []ir.StageSpec{
				{Group: &ir.GroupSpec{Field: "d", Period: &ir.PeriodSpec{Type: "fortnight"}}},
				count,
			}},
			field: "stages[0].group.period",
			code:  ErrInvalidPeriod,
		},
		{
			name: "bad period base",
			spec: ir.QuerySpec{Source: "m", Stages: []ir.StageSpec{
				{Group: &ir.GroupSpec{Field: "d", Period: &ir.PeriodSpec{Base: "soon"}}},
				count,
			}},
			field: "stages[0].group.period",
			code:  ErrInvalidPeriod,
		},
		{
			name:  "value with sum and count",
			spec:  ir.QuerySpec{Source: "m", Stages: []ir.StageSpec{{Value: &ir.ValueSpec{Sum: "x", Count: true}}}},
			field: "stages[0].value",
			code:  ErrInvalidValue,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			errs := Validate(tc.spec)
			require.NotEmpty(t, errs)
			assert.Equal(t, tc.field, errs[0].Field)
			assert.Equal(t, tc.code, errs[0].Code)

			spec := tc.spec
			_, _, err := Build(&spec)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.field, ce.Field)
			assert.Contains(t, ce.Message, tc.code)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	spec := ir.QuerySpec{
		Stages: []ir.StageSpec{
			{Value: &ir.ValueSpec{}},
			{Group: &ir.GroupSpec{Field: "d", Dates: []ir.DateBounds{{Gte: "nope"}}, Label: "{{"}},
		},
	}

	var codes []string
	for _, e := range Validate(spec) {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{ErrMissingSource, ErrInvalidValue, ErrValueNotLast, ErrInvalidDate, ErrInvalidTemplate, ErrGroupLast}, codes)

	errs := Validate("not a spec")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedSpec, errs[0].Code)
}

func TestBuildFormatter(t *testing.T) {
	f, err := BuildFormatter(ir.FormatSpec{Kind: ir.FormatChartRelative, Palette: []string{"#000000"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "#000000", f.(format.ChartRelative).Palette.At(0))

	f, err = BuildFormatter(ir.FormatSpec{}, nil)
	require.NoError(t, err)
	assert.Equal(t, format.NameRaw, f.Name())

	_, err = BuildFormatter(ir.FormatSpec{Kind: "pie"}, nil)
	assert.True(t, IsCompileError(err))
}
