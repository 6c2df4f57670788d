package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/tally/internal/compiler"
	"github.com/roach88/tally/internal/ir"
	"github.com/roach88/tally/internal/records"
	"github.com/roach88/tally/internal/report"
	"github.com/roach88/tally/internal/store"
	"github.com/roach88/tally/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh record store. A fixed clock and
// sequential node ids keep the output reproducible.
//
// Execution flow:
// 1. Load the scenario's records
// 2. Compile and select the query
// 3. Build stages and formatter, compose and update a report once
// 4. Evaluate assertions
//
// Compile and execution failures are recorded on the result, where error
// assertions can match them. The returned error is reserved for problems
// with the scenario's own inputs.
func Run(scenario *Scenario) (*Result, error) {
	return execute(context.Background(), scenario)
}

func execute(ctx context.Context, scenario *Scenario) (*Result, error) {
	rows, err := scenario.LoadRecords()
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	result := NewResult()

	now := scenario.Now
	if now == "" {
		now = DefaultNow
	}
	clock := testutil.ClockAt(now)

	spec, err := selectQuery(scenario)
	if err != nil {
		result.setRunError(err)
	} else {
		result.Query = spec.Name
		if err := runQuery(ctx, scenario, spec, rows, clock.Now, result); err != nil {
			var se *storeError
			if errors.As(err, &se) {
				return nil, err
			}
			result.setRunError(err)
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	slog.Debug("scenario finished", "scenario", scenario.Name, "pass", result.Pass, "errors", len(result.Errors))
	return result, nil
}

func selectQuery(scenario *Scenario) (*ir.QuerySpec, error) {
	specs, err := compiler.LoadPath(scenario.Query)
	if err != nil {
		return nil, err
	}
	return compiler.Select(specs, scenario.QueryName)
}

// storeError marks a failure to set up the record store.
type storeError struct {
	err error
}

func (e *storeError) Error() string { return e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

func runQuery(ctx context.Context, scenario *Scenario, spec *ir.QuerySpec, rows []records.Record, now func() time.Time, result *Result) error {
	stages, formatter, err := compiler.Build(spec,
		compiler.WithNow(now),
		compiler.WithIDs(testutil.NewSequenceIDs("n")),
	)
	if err != nil {
		return err
	}

	source, closeSource, err := openSource(ctx, scenario.Backend, spec.Source, rows)
	if err != nil {
		return &storeError{err: err}
	}
	defer closeSource()

	rep, err := report.New(report.Config{Source: source, Stages: stages, Formatter: formatter})
	if err != nil {
		return err
	}
	result.Describe = rep.Describe()

	snap, err := rep.Update(ctx)
	if err != nil {
		return err
	}
	result.Raw = snap.Raw
	result.Formatted = snap.Formatted
	return nil
}

// openSource returns a report source over rows on the chosen backend.
func openSource(ctx context.Context, backend, dataset string, rows []records.Record) (report.Source, func(), error) {
	if backend != BackendSQLite {
		return report.HandleSource(records.NewCollection(rows)), func() {}, nil
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	if _, err := st.Load(ctx, dataset, rows); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to load records into store: %w", err)
	}
	return report.StoreSource(st, dataset), func() { st.Close() }, nil
}
