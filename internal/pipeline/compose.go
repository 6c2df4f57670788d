package pipeline

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/tally/internal/records"
)

// Compose folds an ordered stage list into a single entry stage whose
// execution runs the stages left to right.
//
// Algorithm: walk the list from the last stage to the first, attaching the
// accumulated chain as each stage's continuation. The last stage keeps
// whatever continuation the caller gave it. The inputs are copied, never
// modified.
//
// Compose fails fast with a *ConfigError when:
//   - the list is empty, or holds a nil stage (checked before anything else)
//   - a value stage is followed by another stage
//   - a group stage ends up without a continuation
//   - a date group's period cannot generate ranges
func Compose(stages ...Stage) (Stage, error) {
	if len(stages) == 0 {
		return nil, newConfigError(ErrCodeEmptyPipeline, -1, "no stages to compose")
	}
	if i := slices.IndexFunc(stages, func(s Stage) bool { return s == nil }); i >= 0 {
		return nil, newConfigError(ErrCodeNilStage, i, "stage is nil")
	}
	last := len(stages) - 1
	for i, s := range stages {
		if s.Kind() == KindValue && i != last {
			return nil, newConfigError(ErrCodeValueNotLast, i, "%s must be the last stage", s)
		}
	}

	var acc Stage
	for i := last; i >= 0; i-- {
		next := acc
		acc = stages[i]
		if i != last {
			acc = acc.withContinuation(next)
		}
	}

	if err := validateChain(acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// validateChain checks every stage reachable from entry, including any
// continuation the caller attached to the last stage.
func validateChain(entry Stage) error {
	i := 0
	for s := entry; s != nil; s = s.Continuation() {
		if s.Kind() == KindGroup && s.Continuation() == nil {
			return newConfigError(ErrCodeMissingContinuation, i, "%s has no continuation to compute its values", s)
		}
		if dg, ok := s.(DateGroup); ok && len(dg.Values) == 0 && dg.Period != nil {
			if err := dg.Period.Validate(); err != nil {
				return newConfigError(ErrCodeInvalidPeriod, i, "%v", err)
			}
		}
		i++
	}
	return nil
}

// RunOption configures a single Run.
type RunOption func(*runConfig)

type runConfig struct {
	maxSteps int
}

// WithMaxSteps sets the maximum number of stage executions for the run.
//
// Default: DefaultMaxSteps. A value <= 0 disables the limit.
func WithMaxSteps(maxSteps int) RunOption {
	return func(c *runConfig) {
		c.maxSteps = maxSteps
	}
}

// Run executes entry against h. A nil entry is a configuration error rather
// than an empty result.
func Run(ctx context.Context, entry Stage, h records.Handle, opts ...RunOption) (Result, error) {
	if entry == nil {
		return nil, newConfigError(ErrCodeEmptyPipeline, -1, "no stage to run")
	}
	cfg := runConfig{maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(&cfg)
	}

	quota := NewQuotaEnforcer(cfg.maxSteps)
	result, err := entry.Execute(withQuota(ctx, quota), h)
	if err != nil {
		slog.Debug("pipeline failed", "steps", quota.Current(), "error", err)
		return nil, err
	}
	slog.Debug("pipeline complete", "steps", quota.Current(), "nodes", CountNodes(result))
	return result, nil
}

// Stages returns the chain starting at entry as a list, in execution order.
func Stages(entry Stage) []Stage {
	var out []Stage
	for s := entry; s != nil; s = s.Continuation() {
		out = append(out, s)
	}
	return out
}

// Describe renders the chain starting at entry, e.g.
// "filter(meal is Breakfast) -> group(date: 3 dates) -> sum(calories)".
func Describe(entry Stage) string {
	if entry == nil {
		return "(empty)"
	}
	var parts []string
	for _, s := range Stages(entry) {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, " -> ")
}
