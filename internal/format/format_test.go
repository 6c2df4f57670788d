package format

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/ir"
	"github.com/roach88/tally/internal/pipeline"
	"github.com/roach88/tally/internal/testutil"
)

func leaves(labels []string, values ...float64) pipeline.Tree {
	t := make(pipeline.Tree, len(values))
	for i, v := range values {
		t[i] = pipeline.Node{Label: labels[i], Values: pipeline.Scalar(v)}
	}
	return t
}

// byMonth is a two-level result: months, then foods.
func byMonth() pipeline.Tree {
	foods := []string{"Eggs", "Toast"}
	return pipeline.Tree{
		{Label: "Feb", Values: leaves(foods, 100, 0)},
		{Label: "Mar", Values: leaves(foods, 0, 130)},
	}
}

func assertGolden(t *testing.T, name string, v any) {
	t.Helper()
	data, err := ir.MarshalCanonical(v)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

func testPalette() Palette {
	return NewPalette("#111111", "#222222")
}

func TestTree_Golden(t *testing.T) {
	f := Tree{RootLabel: "meals", Palette: testPalette(), IDs: testutil.NewSequenceIDs("n")}
	out, err := f.Format(byMonth())
	require.NoError(t, err)
	assertGolden(t, "tree", out)
}

func TestChart_Golden(t *testing.T) {
	out, err := Chart{Palette: testPalette()}.Format(byMonth())
	require.NoError(t, err)
	assertGolden(t, "chart", out)

	out, err = ChartRelative{Palette: testPalette()}.Format(byMonth())
	require.NoError(t, err)
	assertGolden(t, "chart_relative", out)
}

func TestTree_InternalAreaIsSumOfChildren(t *testing.T) {
	result := pipeline.Tree{
		{Label: "all", Values: leaves([]string{"a", "b", "c"}, 3, 5, 2)},
	}

	root, err := Tree{IDs: testutil.NewSequenceIDs("")}.Build(result)
	require.NoError(t, err)

	assert.Equal(t, DefaultRootLabel, root.Name)
	require.Len(t, root.Children, 1)
	internal := root.Children[0]
	assert.Equal(t, 10.0, internal.Data.Area)
	assert.Equal(t, 10.0, internal.Data.Dim)
	assert.Equal(t, 10.0, root.Data.Area)
	for i, want := range []float64{3, 5, 2} {
		assert.Equal(t, want, internal.Children[i].Data.Area)
		assert.Empty(t, internal.Children[i].Children)
	}
}

func TestTree_ColorsByDepth(t *testing.T) {
	root, err := Tree{Palette: NewPalette("#000001"), IDs: testutil.NewSequenceIDs("")}.Build(byMonth())
	require.NoError(t, err)

	assert.Equal(t, "#000001", root.Data.Color)
	assert.Equal(t, "", root.Children[0].Data.Color, "palette does not cycle")

	root, err = Tree{IDs: testutil.NewSequenceIDs("")}.Build(byMonth())
	require.NoError(t, err)
	assert.Equal(t, "#416D9C", root.Data.Color)
	assert.Equal(t, "#70A35E", root.Children[0].Data.Color)
	assert.Equal(t, "#EBB056", root.Children[0].Children[0].Data.Color)
}

func TestTree_DefaultIDsAreUUIDv7(t *testing.T) {
	root, err := Tree{}.Build(pipeline.Scalar(4))
	require.NoError(t, err)

	assert.Regexp(t, `^node-0-[0-9a-f-]{36}$`, root.ID)
	parsed, err := uuid.Parse(root.ID[len("node-0-"):])
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Equal(t, 4.0, root.Data.Area)
}

func TestTree_RejectsNonNumericLeaves(t *testing.T) {
	result := pipeline.Tree{
		{Label: "Feb", Values: pipeline.Tree{{Label: "Eggs", Values: pipeline.NoValue}}},
	}
	_, err := Tree{IDs: testutil.NewSequenceIDs("")}.Format(result)
	require.Error(t, err)

	var se *ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.ErrCodeNonNumericLeaf, se.Code)
	assert.Equal(t, "[0].values[0].values", se.Path)

	_, err = Tree{}.Format(pipeline.HandleResult{Handle: testutil.MealsCollection()})
	assert.True(t, IsShapeError(err))
}

func TestChartRelative_Normalises(t *testing.T) {
	testCases := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{"proportions", []float64{1, 1, 2}, []float64{0.25, 0.25, 0.5}},
		{"all zero", []float64{0, 0, 0}, []float64{0, 0, 0}},
		{"single", []float64{7}, []float64{1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			labels := []string{"a", "b", "c"}[:len(tc.values)]
			result := pipeline.Tree{{Label: "g", Values: leaves(labels, tc.values...)}}

			out, err := ChartRelative{}.Format(result)
			require.NoError(t, err)
			chart := out.(ChartOutput)
			require.Len(t, chart.Values, 1)
			assert.InDeltaSlice(t, tc.want, chart.Values[0].Values, 1e-12)
			assert.Equal(t, labels, chart.Label)
		})
	}
}

func TestChart_RawValuesAndDefaultPalette(t *testing.T) {
	out, err := Chart{}.Format(byMonth())
	require.NoError(t, err)
	chart := out.(ChartOutput)

	assert.Equal(t, DefaultPalette().Colors(), chart.Color)
	assert.Equal(t, []string{"Eggs", "Toast"}, chart.Label)
	assert.Equal(t, []Series{
		{Label: "Feb", Values: []float64{100, 0}},
		{Label: "Mar", Values: []float64{0, 130}},
	}, chart.Values)

	// Input is untouched by the relative formatter
	input := byMonth()
	_, err = ChartRelative{}.Format(input)
	require.NoError(t, err)
	assert.Equal(t, byMonth(), input)
}

func TestChart_EmptyTree(t *testing.T) {
	out, err := Chart{}.Format(pipeline.Tree{})
	require.NoError(t, err)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"color": ["#416D9C", "#70A35E", "#EBB056", "#C74243", "#83548B", "#909291", "#557EAA"], "label": [], "values": []}`, string(data))
}

func TestChart_RejectsIrregularTrees(t *testing.T) {
	ab := []string{"a", "b"}

	testCases := []struct {
		name   string
		result pipeline.Result
		code   pipeline.ShapeErrorCode
		path   string
	}{
		{
			name:   "scalar",
			result: pipeline.Scalar(3),
			code:   pipeline.ErrCodeNotTree,
			path:   "$",
		},
		{
			name:   "one level",
			result: leaves(ab, 1, 2),
			code:   pipeline.ErrCodeDepthMismatch,
			path:   "[0].values",
		},
		{
			name: "three levels",
			result: pipeline.Tree{
				{Label: "x", Values: pipeline.Tree{{Label: "a", Values: leaves(ab, 1, 2)}}},
			},
			code: pipeline.ErrCodeDepthMismatch,
			path: "[0].values[0].values",
		},
		{
			name: "differing leaf counts",
			result: pipeline.Tree{
				{Label: "x", Values: leaves(ab, 1, 2)},
				{Label: "y", Values: leaves(ab, 1)},
			},
			code: pipeline.ErrCodeLeafCount,
			path: "[1].values",
		},
		{
			name: "differing leaf labels",
			result: pipeline.Tree{
				{Label: "x", Values: leaves(ab, 1, 2)},
				{Label: "y", Values: leaves([]string{"b", "a"}, 1, 2)},
			},
			code: pipeline.ErrCodeLeafLabel,
			path: "[1].values",
		},
		{
			name: "sentinel leaf",
			result: pipeline.Tree{
				{Label: "x", Values: pipeline.Tree{{Label: "a", Values: pipeline.NoValue}}},
			},
			code: pipeline.ErrCodeNonNumericLeaf,
			path: "[0].values[0].values",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, f := range []Formatter{Chart{}, ChartRelative{}} {
				_, err := f.Format(tc.result)
				require.Error(t, err, f.Name())

				var se *ShapeError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, tc.code, se.Code, f.Name())
				assert.Equal(t, tc.path, se.Path, f.Name())
			}
		})
	}
}

func TestFormatJSON_RejectsFormattedOutput(t *testing.T) {
	out, err := Chart{}.Format(byMonth())
	require.NoError(t, err)
	formatted, err := json.Marshal(out)
	require.NoError(t, err)

	_, err = FormatJSON(Chart{}, formatted)
	require.Error(t, err)
	assert.True(t, IsShapeError(err))

	treeOut, err := Tree{}.Format(byMonth())
	require.NoError(t, err)
	formatted, err = json.Marshal(treeOut)
	require.NoError(t, err)

	_, err = FormatJSON(Tree{}, formatted)
	assert.True(t, IsShapeError(err))
}

func TestFormatJSON_FormatsRawTree(t *testing.T) {
	raw, err := json.Marshal(byMonth())
	require.NoError(t, err)

	out, err := FormatJSON(ChartRelative{}, raw)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, out.(ChartOutput).Values[0].Values)
}

func TestByName(t *testing.T) {
	for _, name := range Names() {
		f, err := ByName(name, Options{})
		require.NoError(t, err)
		assert.Equal(t, name, f.Name())
	}

	f, err := ByName("", Options{})
	require.NoError(t, err)
	assert.Equal(t, NameRaw, f.Name())

	f, err = ByName(NameTree, Options{RootLabel: "meals"})
	require.NoError(t, err)
	assert.Equal(t, "meals", f.(Tree).RootLabel)

	_, err = ByName("pie", Options{})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRaw(t *testing.T) {
	out, err := Raw{}.Format(byMonth())
	require.NoError(t, err)
	assert.Equal(t, byMonth(), out)

	_, err = Raw{}.Format(pipeline.HandleResult{Handle: testutil.MealsCollection()})
	assert.True(t, IsShapeError(err))
}

func TestPalette_Immutable(t *testing.T) {
	colors := []string{"#000000"}
	p := NewPalette(colors...)
	colors[0] = "#FFFFFF"
	assert.Equal(t, "#000000", p.At(0))

	got := p.Colors()
	got[0] = "#FFFFFF"
	assert.Equal(t, "#000000", p.At(0))

	d := DefaultPalette().Colors()
	d[0] = "#FFFFFF"
	assert.Equal(t, "#416D9C", DefaultPalette().At(0))

	var zero Palette
	assert.True(t, zero.IsZero())
	assert.Equal(t, 7, zero.Len())
	assert.Equal(t, "", zero.At(7))
	assert.Equal(t, "", zero.At(-1))
}
