package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxSteps bounds the number of stage executions in one run.
// A run executes one stage per filter and value, and one per group plus one
// per bucket, so this admits roughly a 30x30x30 three-level grouping.
const DefaultMaxSteps = 100_000

// QuotaEnforcer counts stage executions during one run and enforces a
// maximum. Deeply nested groups multiply their branching factors, so the
// limit is the guard against a runaway query.
//
// A QuotaEnforcer belongs to a single run and is not safe for concurrent use.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
// A limit <= 0 disables enforcement.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check increments the step counter and validates against the limit.
func (q *QuotaEnforcer) Check(kind Kind) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			Kind:  kind,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the maximum steps limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when a run exceeds the step quota. The run
// is abandoned; no partial tree is returned.
type StepsExceededError struct {
	Kind  Kind // Stage kind that tripped the limit
	Steps int  // Number of steps taken
	Limit int  // Maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("pipeline exceeded max steps quota at %s stage: %d steps > %d limit",
		e.Kind, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}

type quotaKey struct{}

func withQuota(ctx context.Context, q *QuotaEnforcer) context.Context {
	return context.WithValue(ctx, quotaKey{}, q)
}

// checkStep honours cancellation and charges one step to the run's quota,
// if the context carries one.
func checkStep(ctx context.Context, kind Kind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q, ok := ctx.Value(quotaKey{}).(*QuotaEnforcer); ok {
		return q.Check(kind)
	}
	return nil
}
