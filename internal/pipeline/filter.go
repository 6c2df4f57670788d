package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/tally/internal/compare"
	"github.com/roach88/tally/internal/queryir"
	"github.com/roach88/tally/internal/records"
)

// StringFilter keeps records whose Field satisfies Match. Keys of Match
// outside compare.Whitelist are dropped before the handle sees them.
type StringFilter struct {
	Field string
	Match compare.StringSpec
	Next  Stage
}

// NumberFilter keeps records whose Field matches any of Ranges.
type NumberFilter struct {
	Field  string
	Ranges []compare.NumberRange
	Next   Stage
}

// DateFilter keeps records whose Field matches any of Ranges. With Julian
// set the field already holds Julian day numbers.
type DateFilter struct {
	Field  string
	Ranges []compare.DateRange
	Julian bool
	Next   Stage
}

// Predicate returns the declarative predicate handed to the record store.
func (s StringFilter) Predicate() queryir.Predicate {
	return queryir.NewStringMatch(s.Field, s.Match)
}

// Predicate returns the declarative predicate handed to the record store.
func (s NumberFilter) Predicate() queryir.Predicate {
	return queryir.NumberIn{Field: s.Field, Ranges: s.Ranges}
}

// Predicate returns the declarative predicate handed to the record store.
func (s DateFilter) Predicate() queryir.Predicate {
	return queryir.DateIn{Field: s.Field, Ranges: s.Ranges, Julian: s.Julian}
}

func (StringFilter) Kind() Kind { return KindFilter }
func (NumberFilter) Kind() Kind { return KindFilter }
func (DateFilter) Kind() Kind   { return KindFilter }

func (s StringFilter) Continuation() Stage { return s.Next }
func (s NumberFilter) Continuation() Stage { return s.Next }
func (s DateFilter) Continuation() Stage   { return s.Next }

func (s StringFilter) withContinuation(next Stage) Stage {
	s.Next = next
	return s
}

func (s NumberFilter) withContinuation(next Stage) Stage {
	s.Next = next
	return s
}

func (s DateFilter) withContinuation(next Stage) Stage {
	s.Next = next
	return s
}

// Execute implements Stage.
func (s StringFilter) Execute(ctx context.Context, h records.Handle) (Result, error) {
	return runFilter(ctx, s.Predicate(), s.Next, h)
}

// Execute implements Stage.
func (s NumberFilter) Execute(ctx context.Context, h records.Handle) (Result, error) {
	return runFilter(ctx, s.Predicate(), s.Next, h)
}

// Execute implements Stage.
func (s DateFilter) Execute(ctx context.Context, h records.Handle) (Result, error) {
	return runFilter(ctx, s.Predicate(), s.Next, h)
}

func (s StringFilter) String() string { return fmt.Sprintf("filter(%s)", s.Predicate()) }
func (s NumberFilter) String() string { return fmt.Sprintf("filter(%s)", s.Predicate()) }
func (s DateFilter) String() string   { return fmt.Sprintf("filter(%s)", s.Predicate()) }

func runFilter(ctx context.Context, p queryir.Predicate, next Stage, h records.Handle) (Result, error) {
	if err := checkStep(ctx, KindFilter); err != nil {
		return nil, err
	}
	slog.Debug("filter stage", "predicate", p)
	return runNext(ctx, next, h.Filter(p))
}
