package pipeline

import (
	"context"

	"github.com/roach88/tally/internal/records"
)

// Kind is the stage category.
type Kind string

const (
	KindFilter Kind = "filter"
	KindGroup  Kind = "group"
	KindValue  Kind = "value"
)

// Stage is one step of a pipeline.
//
// Implementations:
//   - StringFilter, NumberFilter, DateFilter
//   - StringGroup, NumberGroup, DateGroup
//   - Sum, Count
//
// The interface is closed: withContinuation is unexported so that only this
// package can attach continuations, which keeps Compose the single place
// where chains are built.
type Stage interface {
	// Kind reports the stage category.
	Kind() Kind

	// Execute runs the stage, and through its continuation the rest of the
	// chain, against h. h is never modified.
	Execute(ctx context.Context, h records.Handle) (Result, error)

	// Continuation returns the stage that runs next, or nil.
	Continuation() Stage

	// String renders the stage alone, without its continuation.
	String() string

	// withContinuation returns a copy of the stage with next attached.
	withContinuation(next Stage) Stage
}

// runNext executes next against h, or returns h itself when the chain ends
// at this stage.
func runNext(ctx context.Context, next Stage, h records.Handle) (Result, error) {
	if next == nil {
		return HandleResult{Handle: h}, nil
	}
	return next.Execute(ctx, h)
}
