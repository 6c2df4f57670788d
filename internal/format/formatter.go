// Package format reshapes a pipeline result tree into the two output
// topologies consumed by visualizations: a nested hierarchy with aggregated
// areas (Tree) and a flat multi-series table (Chart, ChartRelative).
//
// Formatters never modify their input and never return partial output: a
// tree with the wrong shape is reported as a *ShapeError.
package format

import (
	"errors"
	"fmt"

	"github.com/roach88/tally/internal/pipeline"
)

// Formatter turns a result into a JSON-encodable value.
type Formatter interface {
	// Name is the formatter's registry name, e.g. "chart".
	Name() string

	// Format reshapes r. The input is never modified.
	Format(r pipeline.Result) (any, error)
}

// Formatter names accepted by ByName.
const (
	NameTree          = "tree"
	NameChart         = "chart"
	NameChartRelative = "chart-relative"
	NameRaw           = "raw"
)

// ShapeError is the error returned for input of the wrong shape.
type ShapeError = pipeline.ShapeError

// IsShapeError returns true if err is a ShapeError.
func IsShapeError(err error) bool {
	return pipeline.IsShapeError(err)
}

// ErrUnknownFormat is returned by ByName for unrecognised names.
var ErrUnknownFormat = errors.New("unknown format")

// Options configures formatters built by ByName. Zero values select the
// defaults: root label "root", DefaultPalette and UUIDv7 node ids.
type Options struct {
	RootLabel string
	Palette   Palette
	IDs       IDGenerator
}

// Names lists the formatter names ByName accepts.
func Names() []string {
	return []string{NameTree, NameChart, NameChartRelative, NameRaw}
}

// ByName resolves a formatter from its name.
func ByName(name string, opts Options) (Formatter, error) {
	switch name {
	case NameTree:
		return Tree{RootLabel: opts.RootLabel, Palette: opts.Palette, IDs: opts.IDs}, nil
	case NameChart:
		return Chart{Palette: opts.Palette}, nil
	case NameChartRelative:
		return ChartRelative{Palette: opts.Palette}, nil
	case NameRaw, "":
		return Raw{}, nil
	default:
		return nil, fmt.Errorf("%w %q (want one of %v)", ErrUnknownFormat, name, Names())
	}
}

// FormatJSON parses data as a raw result tree and formats it. Formatter
// output and other JSON that is not a raw tree is rejected.
func FormatJSON(f Formatter, data []byte) (any, error) {
	tree, err := pipeline.ParseTree(data)
	if err != nil {
		return nil, err
	}
	return f.Format(tree)
}

// Raw returns serialisable results unchanged.
type Raw struct{}

// Name implements Formatter.
func (Raw) Name() string { return NameRaw }

// Format implements Formatter. Handles have no serialised form and are
// rejected.
func (Raw) Format(r pipeline.Result) (any, error) {
	switch r.(type) {
	case nil:
		return nil, pipeline.NewShapeError(pipeline.ErrCodeNotTree, "$", "no result to format")
	case pipeline.HandleResult:
		return nil, pipeline.NewShapeError(pipeline.ErrCodeNotTree, "$", "pipeline ended in a filter; add a group or value stage")
	}
	return r, nil
}
