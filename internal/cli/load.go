package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/records"
	"github.com/roach88/tally/internal/store"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Database string
	Dataset  string
	Replace  bool
}

// LoadOutput reports what a load wrote, and the datasets now stored.
type LoadOutput struct {
	Dataset  string              `json:"dataset,omitempty"`
	Written  int                 `json:"written"`
	Replaced bool                `json:"replaced,omitempty"`
	Datasets []store.DatasetInfo `json:"datasets"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load [records-file]",
		Short: "Load records into a SQLite database",
		Long: `Load a JSON or YAML record file into a named dataset of a SQLite
database, for later use with "tally run --db". Without a file, list the
stored datasets.

Examples:
  tally load meals.json --db ./tally.db --dataset meals
  tally load meals.yaml --db ./tally.db --replace
  tally load --db ./tally.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runLoad(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Dataset, "dataset", "", "dataset name (default: the file name without extension)")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "replace the dataset instead of appending")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runLoad(opts *LoadOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}()

	var result LoadOutput
	if path != "" {
		rows, err := records.DecodeFile(path)
		if err != nil {
			_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read records", err)
		}

		dataset := opts.Dataset
		if dataset == "" {
			dataset = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		write := st.Load
		if opts.Replace {
			write = st.Replace
		}
		n, err := write(ctx, dataset, rows)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to store records", err)
		}
		slog.Debug("records stored", "dataset", dataset, "count", n, "replace", opts.Replace)

		result.Dataset = dataset
		result.Written = n
		result.Replaced = opts.Replace
	}

	result.Datasets, err = st.Datasets(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to list datasets", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if result.Dataset != "" {
		verb := "Loaded"
		if result.Replaced {
			verb = "Replaced"
		}
		fmt.Fprintf(formatter.Writer, "%s %d record(s) into %s\n", verb, result.Written, result.Dataset)
	}
	for _, ds := range result.Datasets {
		fmt.Fprintf(formatter.Writer, "  %s: %d\n", ds.Name, ds.Count)
	}
	return nil
}
