package ir

import (
	"github.com/roach88/tally/internal/compare"
)

// Stage kinds.
const (
	KindFilter = "filter"
	KindGroup  = "group"
	KindValue  = "value"
)

// Format kinds.
const (
	FormatTree          = "tree"
	FormatChart         = "chart"
	FormatChartRelative = "chart-relative"
	FormatRaw           = "raw"
)

// QuerySpec is a compiled query definition: a source collection, a stage
// chain read left to right, and the formatter applied to the result.
type QuerySpec struct {
	Name   string      `json:"name" yaml:"name"`
	Source string      `json:"source" yaml:"source" validate:"required"`
	Stages []StageSpec `json:"stages" yaml:"stages" validate:"required,min=1,dive"`
	Format FormatSpec  `json:"format" yaml:"format"`
}

// StageSpec holds exactly one of Filter, Group or Value.
type StageSpec struct {
	Filter *FilterSpec `json:"filter,omitempty" yaml:"filter,omitempty"`
	Group  *GroupSpec  `json:"group,omitempty" yaml:"group,omitempty"`
	Value  *ValueSpec  `json:"value,omitempty" yaml:"value,omitempty"`
}

// Kinds returns the kinds set on the stage, in filter/group/value order.
// A well-formed stage has exactly one.
func (s StageSpec) Kinds() []string {
	var kinds []string
	if s.Filter != nil {
		kinds = append(kinds, KindFilter)
	}
	if s.Group != nil {
		kinds = append(kinds, KindGroup)
	}
	if s.Value != nil {
		kinds = append(kinds, KindValue)
	}
	return kinds
}

// FilterSpec selects records on one field. Exactly one of String, Numbers
// or Dates is expected.
type FilterSpec struct {
	Field   string                `json:"field" yaml:"field"`
	String  compare.StringSpec    `json:"string,omitempty" yaml:"string,omitempty"`
	Numbers []compare.NumberRange `json:"numbers,omitempty" yaml:"numbers,omitempty"`
	Dates   []DateBounds          `json:"dates,omitempty" yaml:"dates,omitempty"`
	Julian  bool                  `json:"julian,omitempty" yaml:"julian,omitempty"`
}

// GroupSpec partitions records on one field. Dates may be given explicitly
// or derived from Period.
type GroupSpec struct {
	Field   string                `json:"field" yaml:"field"`
	Strings []compare.StringSpec  `json:"strings,omitempty" yaml:"strings,omitempty"`
	Numbers []compare.NumberRange `json:"numbers,omitempty" yaml:"numbers,omitempty"`
	Dates   []DateBounds          `json:"dates,omitempty" yaml:"dates,omitempty"`
	Period  *PeriodSpec           `json:"period,omitempty" yaml:"period,omitempty"`
	Julian  bool                  `json:"julian,omitempty" yaml:"julian,omitempty"`

	// Label is a text/template executed against each group value.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// DateBounds is a date comparison object with unparsed bounds.
type DateBounds struct {
	Lt  string `json:"lt,omitempty" yaml:"lt,omitempty"`
	Gt  string `json:"gt,omitempty" yaml:"gt,omitempty"`
	Lte string `json:"lte,omitempty" yaml:"lte,omitempty"`
	Gte string `json:"gte,omitempty" yaml:"gte,omitempty"`
	Eq  string `json:"eq,omitempty" yaml:"eq,omitempty"`
}

// PeriodSpec is an interval request with an unparsed base date.
type PeriodSpec struct {
	Type      string `json:"type,omitempty" yaml:"type,omitempty"`
	Length    int    `json:"length,omitempty" yaml:"length,omitempty"`
	Qty       int    `json:"qty,omitempty" yaml:"qty,omitempty"`
	Base      string `json:"base,omitempty" yaml:"base,omitempty"`
	Direction int    `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// ValueSpec is a terminal aggregate: Sum names a field, Count counts records.
type ValueSpec struct {
	Sum   string `json:"sum,omitempty" yaml:"sum,omitempty"`
	Count bool   `json:"count,omitempty" yaml:"count,omitempty"`
}

// FormatSpec selects the formatter. An empty Kind means raw output.
type FormatSpec struct {
	Kind      string   `json:"kind,omitempty" yaml:"kind,omitempty" validate:"omitempty,oneof=tree chart chart-relative raw"`
	RootLabel string   `json:"root_label,omitempty" yaml:"root_label,omitempty"`
	Palette   []string `json:"palette,omitempty" yaml:"palette,omitempty" validate:"omitempty,dive,hexcolor"`
}
