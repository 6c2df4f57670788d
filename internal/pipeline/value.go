package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/tally/internal/records"
)

// Sum is a terminal stage adding Field over the handle's records.
type Sum struct {
	Field string
}

// Count is a terminal stage counting the handle's records.
type Count struct{}

func (Sum) Kind() Kind   { return KindValue }
func (Count) Kind() Kind { return KindValue }

// Continuation is always nil; value stages end a chain.
func (Sum) Continuation() Stage   { return nil }
func (Count) Continuation() Stage { return nil }

// withContinuation ignores next. Compose never attaches one because a value
// stage must be last.
func (s Sum) withContinuation(Stage) Stage   { return s }
func (s Count) withContinuation(Stage) Stage { return s }

func (s Sum) String() string { return fmt.Sprintf("sum(%s)", s.Field) }
func (Count) String() string { return "count()" }

// Execute implements Stage.
func (s Sum) Execute(ctx context.Context, h records.Handle) (Result, error) {
	if err := checkStep(ctx, KindValue); err != nil {
		return nil, err
	}
	v, err := h.Sum(ctx, s.Field)
	if err != nil {
		return nil, fmt.Errorf("sum %q: %w", s.Field, err)
	}
	slog.Debug("value stage", "op", "sum", "field", s.Field, "value", v)
	return Scalar(v), nil
}

// Execute implements Stage.
func (Count) Execute(ctx context.Context, h records.Handle) (Result, error) {
	if err := checkStep(ctx, KindValue); err != nil {
		return nil, err
	}
	n, err := h.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}
	slog.Debug("value stage", "op", "count", "value", n)
	return Scalar(n), nil
}
