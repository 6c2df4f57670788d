package format

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/tally/internal/pipeline"
)

// Chart formats a two-level result as a flat series table for bar, pie and
// area charts. Each top-level group becomes a series; the leaf labels of
// the first group become the shared axis labels.
type Chart struct {
	Palette Palette
}

// ChartRelative is Chart with every series normalised to sum to 1. A series
// whose raw values sum to 0 is all zeros.
type ChartRelative struct {
	Palette Palette
}

// ChartOutput is the output of Chart and ChartRelative.
type ChartOutput struct {
	Color  []string `json:"color"`
	Label  []string `json:"label"`
	Values []Series `json:"values"`
}

// Series is one top-level group's leaf values, in label order.
type Series struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// Name implements Formatter.
func (Chart) Name() string { return NameChart }

// Name implements Formatter.
func (ChartRelative) Name() string { return NameChartRelative }

// Format implements Formatter. It returns a ChartOutput.
func (f Chart) Format(r pipeline.Result) (any, error) {
	out, err := buildChart(r, f.Palette, false)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Format implements Formatter. It returns a ChartOutput.
func (f ChartRelative) Format(r pipeline.Result) (any, error) {
	out, err := buildChart(r, f.Palette, true)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// buildChart validates that r is exactly two grouping levels deep, with
// every group holding the same leaf labels in the same order, and flattens
// it.
func buildChart(r pipeline.Result, palette Palette, relative bool) (ChartOutput, error) {
	groups, ok := r.(pipeline.Tree)
	if !ok {
		return ChartOutput{}, pipeline.NewShapeError(pipeline.ErrCodeNotTree, "$", "expected a result tree, got %T", r)
	}

	out := ChartOutput{
		Color:  palette.Colors(),
		Label:  []string{},
		Values: make([]Series, 0, len(groups)),
	}

	for i, g := range groups {
		path := fmt.Sprintf("[%d].values", i)
		leaves, ok := g.Values.(pipeline.Tree)
		if !ok {
			return ChartOutput{}, pipeline.NewShapeError(pipeline.ErrCodeDepthMismatch, path,
				"group %q has no nested groups; charts need exactly two grouping levels", g.Label)
		}
		labels := leaves.Labels()
		if i == 0 {
			out.Label = labels
		} else {
			if len(labels) != len(out.Label) {
				return ChartOutput{}, pipeline.NewShapeError(pipeline.ErrCodeLeafCount, path,
					"group %q has %d leaves, first group has %d", g.Label, len(labels), len(out.Label))
			}
			if !slices.Equal(labels, out.Label) {
				return ChartOutput{}, pipeline.NewShapeError(pipeline.ErrCodeLeafLabel, path,
					"group %q leaf labels %q differ from first group %q", g.Label, labels, out.Label)
			}
		}

		series := Series{Label: g.Label, Values: make([]float64, len(leaves))}
		var sum float64
		for j, leaf := range leaves {
			leafPath := fmt.Sprintf("%s[%d].values", path, j)
			switch v := leaf.Values.(type) {
			case pipeline.Scalar:
				series.Values[j] = float64(v)
				sum += float64(v)
			case pipeline.Tree:
				return ChartOutput{}, pipeline.NewShapeError(pipeline.ErrCodeDepthMismatch, leafPath,
					"leaf %q is itself grouped; charts need exactly two grouping levels", leaf.Label)
			default:
				return ChartOutput{}, pipeline.NewShapeError(pipeline.ErrCodeNonNumericLeaf, leafPath,
					"leaf %q holds %v instead of a number", leaf.Label, leaf.Values)
			}
		}
		if relative {
			normalise(series.Values, sum)
		}
		out.Values = append(out.Values, series)
	}

	slog.Debug("formatted chart", "series", len(out.Values), "labels", len(out.Label), "relative", relative)
	return out, nil
}

func normalise(values []float64, sum float64) {
	for i := range values {
		if sum == 0 {
			values[i] = 0
			continue
		}
		values[i] /= sum
	}
}
