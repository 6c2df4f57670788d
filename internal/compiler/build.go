package compiler

import (
	"fmt"
	"time"

	"github.com/roach88/tally/internal/compare"
	"github.com/roach88/tally/internal/format"
	"github.com/roach88/tally/internal/interval"
	"github.com/roach88/tally/internal/ir"
	"github.com/roach88/tally/internal/pipeline"
)

// BuildOption configures Build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	now func() time.Time
	ids format.IDGenerator
}

// WithNow sets the clock that anchors periods without a base date.
func WithNow(now func() time.Time) BuildOption {
	return func(c *buildConfig) {
		c.now = now
	}
}

// WithIDs sets the node id generator of a tree formatter.
func WithIDs(ids format.IDGenerator) BuildOption {
	return func(c *buildConfig) {
		c.ids = ids
	}
}

// Build turns a query definition into an ordered stage list and its
// formatter. The spec is validated first; the first problem is returned as
// a *CompileError.
func Build(spec *ir.QuerySpec, opts ...BuildOption) ([]pipeline.Stage, format.Formatter, error) {
	if errs := Validate(spec); len(errs) > 0 {
		return nil, nil, toCompileError(errs[0])
	}
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	stages := make([]pipeline.Stage, 0, len(spec.Stages))
	for i, s := range spec.Stages {
		path := fmt.Sprintf("stages[%d]", i)
		var (
			stage pipeline.Stage
			err   error
		)
		switch {
		case s.Filter != nil:
			stage, err = buildFilter(s.Filter)
		case s.Group != nil:
			stage, err = buildGroup(s.Group, cfg)
		case s.Value != nil:
			stage = buildValue(s.Value)
		}
		if err != nil {
			return nil, nil, &CompileError{Field: path, Message: err.Error()}
		}
		stages = append(stages, stage)
	}

	f, err := BuildFormatter(spec.Format, cfg.ids)
	if err != nil {
		return nil, nil, err
	}
	return stages, f, nil
}

// BuildFormatter resolves a format spec.
func BuildFormatter(spec ir.FormatSpec, ids format.IDGenerator) (format.Formatter, error) {
	opts := format.Options{RootLabel: spec.RootLabel, IDs: ids}
	if len(spec.Palette) > 0 {
		opts.Palette = format.NewPalette(spec.Palette...)
	}
	f, err := format.ByName(spec.Kind, opts)
	if err != nil {
		return nil, &CompileError{Field: "format.kind", Message: err.Error()}
	}
	return f, nil
}

func buildFilter(f *ir.FilterSpec) (pipeline.Stage, error) {
	switch {
	case len(f.String) > 0:
		return pipeline.StringFilter{Field: f.Field, Match: f.String}, nil
	case len(f.Numbers) > 0:
		return pipeline.NumberFilter{Field: f.Field, Ranges: f.Numbers}, nil
	default:
		ranges, err := toDateRanges(f.Dates)
		if err != nil {
			return nil, err
		}
		return pipeline.DateFilter{Field: f.Field, Ranges: ranges, Julian: f.Julian}, nil
	}
}

func buildGroup(g *ir.GroupSpec, cfg buildConfig) (pipeline.Stage, error) {
	switch {
	case len(g.Strings) > 0:
		label, err := stringLabeler(g.Label)
		if err != nil {
			return nil, err
		}
		return pipeline.StringGroup{Field: g.Field, Values: g.Strings, Label: label}, nil
	case len(g.Numbers) > 0:
		label, err := numberLabeler(g.Label)
		if err != nil {
			return nil, err
		}
		return pipeline.NumberGroup{Field: g.Field, Values: g.Numbers, Label: label}, nil
	default:
		label, err := dateLabeler(g.Label)
		if err != nil {
			return nil, err
		}
		dg := pipeline.DateGroup{Field: g.Field, Julian: g.Julian, Label: label, Now: cfg.now}
		if g.Period != nil {
			p, err := toPeriod(g.Period)
			if err != nil {
				return nil, err
			}
			dg.Period = &p
		} else {
			dg.Values, err = toDateRanges(g.Dates)
			if err != nil {
				return nil, err
			}
		}
		return dg, nil
	}
}

func buildValue(v *ir.ValueSpec) pipeline.Stage {
	if v.Count {
		return pipeline.Count{}
	}
	return pipeline.Sum{Field: v.Sum}
}

func toDateRanges(bounds []ir.DateBounds) ([]compare.DateRange, error) {
	out := make([]compare.DateRange, 0, len(bounds))
	for i, b := range bounds {
		r, err := toDateRange(b)
		if err != nil {
			return nil, fmt.Errorf("dates[%d]: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// toDateRange parses each present bound with compare.DateLayouts.
func toDateRange(b ir.DateBounds) (compare.DateRange, error) {
	var r compare.DateRange
	for _, bound := range []struct {
		name string
		text string
		dst  **time.Time
	}{
		{"lt", b.Lt, &r.Lt},
		{"gt", b.Gt, &r.Gt},
		{"lte", b.Lte, &r.Lte},
		{"gte", b.Gte, &r.Gte},
		{"eq", b.Eq, &r.Eq},
	} {
		if bound.text == "" {
			continue
		}
		t, ok := compare.ToTime(bound.text)
		if !ok {
			return compare.DateRange{}, fmt.Errorf("%s: %q is not a date", bound.name, bound.text)
		}
		*bound.dst = compare.Date(t)
	}
	return r, nil
}

// toPeriod converts and validates a period spec.
func toPeriod(p *ir.PeriodSpec) (interval.Period, error) {
	out := interval.Period{
		Type:      interval.Type(p.Type),
		Length:    p.Length,
		Qty:       p.Qty,
		Direction: p.Direction,
	}
	if p.Base != "" {
		t, ok := compare.ToTime(p.Base)
		if !ok {
			return interval.Period{}, fmt.Errorf("base: %q is not a date", p.Base)
		}
		out.BaseDate = t
	}
	if err := out.Validate(); err != nil {
		return interval.Period{}, err
	}
	return out, nil
}

func toCompileError(ve ValidationError) *CompileError {
	return &CompileError{Field: ve.Field, Message: fmt.Sprintf("%s [%s]", ve.Message, ve.Code)}
}
