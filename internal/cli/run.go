package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/compiler"
	"github.com/roach88/tally/internal/ir"
	"github.com/roach88/tally/internal/pipeline"
	"github.com/roach88/tally/internal/records"
	"github.com/roach88/tally/internal/report"
	"github.com/roach88/tally/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Data     string        // records file (JSON or YAML)
	Query    string        // query name, when the file defines several
	Database string        // SQLite database holding the records
	Dataset  string        // dataset in Database; defaults to the query source
	Now      string        // fixed clock date for periods without a base
	Raw      bool          // print the raw result tree instead of the formatted one
	MaxSteps int           // stage execution limit
	Watch    time.Duration // re-run interval; 0 runs once

	// Clock overrides time.Now (for testing). Takes precedence over Now.
	Clock func() time.Time
}

// RunOutput is the JSON payload of a run.
type RunOutput struct {
	Query  string `json:"query"`
	Stages string `json:"stages"`
	Hash   string `json:"hash,omitempty"`
	Seq    int64  `json:"seq"`
	Result any    `json:"result"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <query-file>",
		Short: "Run a query against a record collection",
		Long: `Compile a query definition, run it against records and print the
formatted result.

Records come from a JSON/YAML file (--data), from a SQLite database (--db),
or from a file loaded into the database first (both flags).

With --watch the query re-runs on an interval and prints a result each time
it changes, until interrupted.

Examples:
  tally run queries/meals.cue --data meals.json --query breakfastByMonth
  tally run queries/light.yaml --db ./tally.db
  tally run queries/meals.cue --db ./tally.db --data meals.json --watch 5s`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "records file (.json, .yaml or .yml)")
	cmd.Flags().StringVar(&opts.Query, "query", "", "query name, when the file defines several")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Dataset, "dataset", "", "dataset name in the database (default: the query source)")
	cmd.Flags().StringVar(&opts.Now, "now", "", "fixed current date (YYYY-MM-DD) for periods without a base")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "print the raw result tree")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", pipeline.DefaultMaxSteps, "stage execution limit (<= 0 disables)")
	cmd.Flags().DurationVar(&opts.Watch, "watch", 0, "re-run interval (e.g. 5s); 0 runs once")

	return cmd
}

func runQuery(opts *RunOptions, queryPath string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	spec, err := loadOneQuery(queryPath, opts.Query)
	if err != nil {
		return reportLoadError(out, err)
	}
	out.VerboseLog("Loaded query %s (source %s, %d stages)", spec.Name, spec.Source, len(spec.Stages))

	var buildOpts []compiler.BuildOption
	switch {
	case opts.Clock != nil:
		buildOpts = append(buildOpts, compiler.WithNow(opts.Clock))
	case opts.Now != "":
		now, err := time.Parse(time.DateOnly, opts.Now)
		if err != nil {
			_ = out.Error(ErrCodeBadInput, fmt.Sprintf("--now: %q is not a YYYY-MM-DD date", opts.Now), nil)
			return NewExitError(ExitCommandError, "invalid --now")
		}
		buildOpts = append(buildOpts, compiler.WithNow(func() time.Time { return now }))
	}

	stages, formatter, err := compiler.Build(spec, buildOpts...)
	if err != nil {
		return reportLoadError(out, convertCompileError(err, spec.Name))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	source, closeSource, err := openRunSource(ctx, opts, spec)
	if err != nil {
		return err
	}
	defer closeSource()

	rep, err := report.New(report.Config{Source: source, Stages: stages, Formatter: formatter}, report.WithMaxSteps(opts.MaxSteps))
	if err != nil {
		_ = out.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid pipeline", err)
	}
	out.VerboseLog("Pipeline: %s", rep.Describe())

	if opts.Watch > 0 {
		return watchQuery(ctx, opts, spec, rep, out)
	}

	snap, err := rep.Update(ctx)
	if err != nil {
		_ = out.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "query failed", err)
	}
	return printSnapshot(out, opts, spec, rep, snap)
}

// openRunSource picks the record source from --data and --db.
func openRunSource(ctx context.Context, opts *RunOptions, spec *ir.QuerySpec) (report.Source, func(), error) {
	var rows []records.Record
	if opts.Data != "" {
		var err error
		rows, err = records.DecodeFile(opts.Data)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to read records", err)
		}
	}

	if opts.Database == "" {
		if opts.Data == "" {
			return nil, nil, NewExitError(ExitCommandError, "either --data or --db is required")
		}
		return report.HandleSource(records.NewCollection(rows)), func() {}, nil
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	closeStore := func() {
		if err := st.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}

	dataset := opts.Dataset
	if dataset == "" {
		dataset = spec.Source
	}
	if opts.Data != "" {
		n, err := st.Replace(ctx, dataset, rows)
		if err != nil {
			closeStore()
			return nil, nil, WrapExitError(ExitCommandError, "failed to load records", err)
		}
		slog.Info("records loaded", "dataset", dataset, "count", n)
	}
	return report.StoreSource(st, dataset), closeStore, nil
}

// watchQuery re-runs the report every opts.Watch until the context is
// cancelled or the process is interrupted. A failing update is logged and
// the previous result stays current.
func watchQuery(ctx context.Context, opts *RunOptions, spec *ir.QuerySpec, rep *report.Report, out *OutputFormatter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(opts.Watch)
	defer ticker.Stop()

	for {
		snap, err := rep.Update(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			slog.Warn("update failed", "query", spec.Name, "error", err)
		case snap.Changed:
			if err := printSnapshot(out, opts, spec, rep, snap); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			slog.Info("watch stopped", "query", spec.Name)
			return nil
		case <-ticker.C:
		}
	}
}

func printSnapshot(out *OutputFormatter, opts *RunOptions, spec *ir.QuerySpec, rep *report.Report, snap *report.Snapshot) error {
	result := snap.Formatted
	if opts.Raw {
		result = snap.Raw
	}
	if opts.Format != "json" {
		return out.Success(result)
	}
	return out.Success(RunOutput{
		Query:  spec.Name,
		Stages: rep.Describe(),
		Hash:   snap.Hash,
		Seq:    snap.Seq,
		Result: result,
	})
}

// errorCode maps pipeline, format and loader errors to their codes.
func errorCode(err error) string {
	var shapeErr *pipeline.ShapeError
	if errors.As(err, &shapeErr) {
		return string(shapeErr.Code)
	}
	var configErr *pipeline.ConfigError
	if errors.As(err, &configErr) {
		return string(configErr.Code)
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}

// reportLoadError prints a loader error and picks the exit code: missing
// or unreadable paths are command errors, invalid queries are failures.
func reportLoadError(out *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		_ = out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to load query", err)
	}
	_ = out.Error(loadErr.Code, loadErr.Error(), nil)
	switch loadErr.Code {
	case ErrCodeNotFound, ErrCodeScanError, ErrCodeNoFiles, ErrCodeLoadFailed:
		return WrapExitError(ExitCommandError, "failed to load query", err)
	default:
		return WrapExitError(ExitFailure, "invalid query", err)
	}
}
