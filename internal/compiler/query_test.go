package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/compare"
	"github.com/roach88/tally/internal/ir"
)

const breakfastCUE = `
query: breakfastByMonth: {
	source: "meals"
	stages: [
		{filter: {field: "meal", string: {is: "Breakfast"}}},
		{group: {field: "date", period: {type: "month", qty: 3, base: "2024-02-01"}, label: "{{.Gte.Format \"Jan\"}}"}},
		{group: {field: "food", strings: [{is: "Eggs"}, {is: "Toast"}], label: "{{.Value}}"}},
		{value: {sum: "calories"}},
	]
	format: {kind: "chart"}
}

query: lightMeals: {
	name:   "light"
	source: "meals"
	stages: [
		{filter: {field: "calories", numbers: [{lt: 200}]}},
		{value: {count: true}},
	]
}
`

func compileCUE(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func TestCompileQuery_Basic(t *testing.T) {
	v := compileCUE(t, breakfastCUE)

	spec, err := CompileQuery(v.LookupPath(cue.ParsePath("query.breakfastByMonth")))
	require.NoError(t, err)

	assert.Equal(t, "breakfastByMonth", spec.Name)
	assert.Equal(t, "meals", spec.Source)
	require.Len(t, spec.Stages, 4)

	assert.Equal(t, &ir.FilterSpec{Field: "meal", String: compare.StringSpec{"is": "Breakfast"}}, spec.Stages[0].Filter)
	assert.Equal(t, &ir.PeriodSpec{Type: "month", Qty: 3, Base: "2024-02-01"}, spec.Stages[1].Group.Period)
	assert.Equal(t, `{{.Gte.Format "Jan"}}`, spec.Stages[1].Group.Label)
	assert.Equal(t, []compare.StringSpec{{"is": "Eggs"}, {"is": "Toast"}}, spec.Stages[2].Group.Strings)
	assert.Equal(t, &ir.ValueSpec{Sum: "calories"}, spec.Stages[3].Value)
	assert.Equal(t, ir.FormatChart, spec.Format.Kind)
}

func TestCompileQueries_DeclarationOrder(t *testing.T) {
	specs, err := CompileQueries(compileCUE(t, breakfastCUE))
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, "breakfastByMonth", specs[0].Name)
	assert.Equal(t, "light", specs[1].Name, "explicit name wins over the label")
	assert.Equal(t, []compare.NumberRange{{Lt: compare.Num(200)}}, specs[1].Stages[0].Filter.Numbers)
	assert.True(t, specs[1].Stages[1].Value.Count)
	assert.Equal(t, "", specs[1].Format.Kind)

	specs, err = CompileQueries(compileCUE(t, `other: 1`))
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestCompileQuery_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		src   string
		field string
		msg   string
	}{
		{
			name:  "missing source",
			src:   `query: q: {stages: [{value: {count: true}}]}`,
			field: "source",
			msg:   "source is required",
		},
		{
			name:  "missing stages",
			src:   `query: q: {source: "meals"}`,
			field: "stages",
			msg:   "at least one stage is required",
		},
		{
			name:  "unknown query field",
			src:   `query: q: {source: "meals", stages: [{value: {count: true}}], order: "asc"}`,
			field: "order",
			msg:   "unknown query field",
		},
		{
			name:  "unknown stage kind",
			src:   `query: q: {source: "meals", stages: [{sort: {field: "x"}}, {value: {count: true}}]}`,
			field: "stages[0]",
			msg:   `unknown field "sort"`,
		},
		{
			name:  "two kinds in one stage",
			src:   `query: q: {source: "meals", stages: [{value: {count: true}, filter: {field: "meal", string: {is: "x"}}}]}`,
			field: "stages[0]",
			msg:   "only one is allowed",
		},
		{
			name:  "bad template",
			src:   `query: q: {source: "meals", stages: [{group: {field: "food", strings: [{is: "x"}], label: "{{.Value"}}, {value: {count: true}}]}`,
			field: "stages[0].group.label",
			msg:   "E109",
		},
		{
			name:  "value not last",
			src:   `query: q: {source: "meals", stages: [{value: {count: true}}, {filter: {field: "meal", string: {is: "x"}}}]}`,
			field: "stages[0]",
			msg:   "E104",
		},
		{
			name:  "unknown format",
			src:   `query: q: {source: "meals", stages: [{value: {count: true}}], format: {kind: "pie"}}`,
			field: "format.kind",
			msg:   "E111",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := compileCUE(t, tc.src)
			_, err := CompileQuery(v.LookupPath(cue.ParsePath("query.q")))
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.field, ce.Field)
			assert.Contains(t, ce.Message, tc.msg)
			assert.True(t, IsCompileError(err))
		})
	}
}

func TestCompileQuery_ErrorPositionsPointAtStage(t *testing.T) {
	v := cuecontext.New().CompileString(`query: q: {
	source: "meals"
	stages: [
		{filter: {field: "meal", string: {is: "x"}}},
		{group: {field: "date", dates: [{gte: "yesterday"}]}},
		{value: {count: true}},
	]
}`, cue.Filename("q.cue"))
	require.NoError(t, v.Err())

	_, err := CompileQuery(v.LookupPath(cue.ParsePath("query.q")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "stages[1].group.dates[0]", ce.Field)
	require.True(t, ce.Pos.IsValid())
	assert.Equal(t, 5, ce.Pos.Line())
	assert.Contains(t, err.Error(), "q.cue:5:")
}

func TestCompileQuery_CUEErrors(t *testing.T) {
	v := cuecontext.New().CompileString(`query: q: {source: "a" & "b"}`)
	_, err := CompileQuery(v.LookupPath(cue.ParsePath("query.q")))
	assert.Error(t, err)
}

func TestCompileQueryYAML(t *testing.T) {
	spec, err := CompileQueryYAML([]byte(`
name: byCalories
source: meals
stages:
  - group:
      field: calories
      numbers: [{lt: 200}, {gte: 200}]
      label: "{{num .Lt}}"
  - value: {sum: calories}
format:
  kind: tree
  root_label: all meals
  palette: ["#000000", "#FFFFFF"]
`))
	require.NoError(t, err)

	assert.Equal(t, "byCalories", spec.Name)
	assert.Equal(t, []compare.NumberRange{{Lt: compare.Num(200)}, {Gte: compare.Num(200)}}, spec.Stages[0].Group.Numbers)
	assert.Equal(t, ir.FormatSpec{Kind: ir.FormatTree, RootLabel: "all meals", Palette: []string{"#000000", "#FFFFFF"}}, spec.Format)
}

func TestCompileQueryYAML_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		src   string
		field string
	}{
		{"unknown key", "source: meals\nstages: [{value: {count: true}}]\nsort: asc\n", "yaml"},
		{"not yaml", "source: [", "yaml"},
		{"bad palette", "source: meals\nstages: [{value: {count: true}}]\nformat: {palette: [red]}\n", "format.palette[0]"},
		{"no stages", "source: meals\n", "stages"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CompileQueryYAML([]byte(tc.src))
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.field, ce.Field)
		})
	}
}

func TestCompileError_Code(t *testing.T) {
	testCases := []struct {
		message string
		want    string
	}{
		{message: "a value stage must be the last stage [E104]", want: "E104"},
		{message: `"pie" must be one of: tree chart chart-relative raw [E111]`, want: "E111"},
		{message: "source is required", want: ""},
		{message: "reference \"x\" not found", want: ""},
		{message: "[E104] at the front", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.message, func(t *testing.T) {
			err := &CompileError{Field: "stages[0]", Message: tc.message}
			assert.Equal(t, tc.want, err.Code())
		})
	}
}
