package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/compare"
	"github.com/roach88/tally/internal/interval"
)

// IntervalsOptions holds flags for the intervals command.
type IntervalsOptions struct {
	*RootOptions
	Type      string
	Length    int
	Qty       int
	Base      string
	Direction int
	Julian    bool

	// Clock overrides time.Now (for testing).
	Clock func() time.Time
}

// IntervalRange is one generated range. Gte is inclusive, Lt exclusive.
type IntervalRange struct {
	Gte       string   `json:"gte"`
	Lt        string   `json:"lt"`
	JulianGte *float64 `json:"julian_gte,omitempty"`
	JulianLt  *float64 `json:"julian_lt,omitempty"`
}

// NewIntervalsCommand creates the intervals command.
func NewIntervalsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IntervalsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "intervals",
		Short: "Print the date ranges a period generates",
		Long: `Print the consecutive calendar ranges a date group period produces.

The range containing the base date is always included and ranges are
listed oldest first, whichever direction is walked.

Examples:
  tally intervals --type month --qty 3 --base 2024-03-15
  tally intervals --type week --qty 4 --direction -1 --julian`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntervals(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", string(interval.Day), "unit: year, qtr, month, week or day")
	cmd.Flags().IntVar(&opts.Length, "length", 1, "units per range")
	cmd.Flags().IntVar(&opts.Qty, "qty", 1, "number of ranges")
	cmd.Flags().StringVar(&opts.Base, "base", "", "anchor date YYYY-MM-DD (default: today)")
	cmd.Flags().IntVar(&opts.Direction, "direction", 1, "walk forward (>= 0) or backward (< 0)")
	cmd.Flags().BoolVar(&opts.Julian, "julian", false, "include Julian day numbers")

	return cmd
}

func runIntervals(opts *IntervalsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	period := interval.Period{
		Type:      interval.Type(opts.Type),
		Length:    opts.Length,
		Qty:       opts.Qty,
		Direction: opts.Direction,
	}
	if opts.Base != "" {
		base, err := time.Parse(time.DateOnly, opts.Base)
		if err != nil {
			_ = formatter.Error(ErrCodeBadInput, fmt.Sprintf("--base: %q is not a YYYY-MM-DD date", opts.Base), nil)
			return NewExitError(ExitCommandError, "invalid --base")
		}
		period.BaseDate = base
	}

	ranges, err := interval.Generator{Now: opts.Clock}.Generate(period)
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid period", err)
	}

	out := make([]IntervalRange, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, toIntervalRange(r, opts.Julian))
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	for _, r := range out {
		if opts.Julian {
			fmt.Fprintf(formatter.Writer, "%s  %s  [%.1f, %.1f)\n", r.Gte, r.Lt, *r.JulianGte, *r.JulianLt)
			continue
		}
		fmt.Fprintf(formatter.Writer, "%s  %s\n", r.Gte, r.Lt)
	}
	return nil
}

func toIntervalRange(r compare.DateRange, julian bool) IntervalRange {
	out := IntervalRange{
		Gte: r.Gte.Format(time.DateOnly),
		Lt:  r.Lt.Format(time.DateOnly),
	}
	if julian {
		out.JulianGte = compare.Num(compare.JulianDay(*r.Gte))
		out.JulianLt = compare.Num(compare.JulianDay(*r.Lt))
	}
	return out
}
