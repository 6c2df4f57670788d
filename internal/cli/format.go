package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/format"
)

// FormatOptions holds flags for the format command.
type FormatOptions struct {
	*RootOptions
	As        string
	RootLabel string
	Palette   []string

	// IDs overrides the tree node id generator (for testing).
	IDs format.IDGenerator
}

// NewFormatCommand creates the format command.
func NewFormatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FormatOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "format <raw-result.json | ->",
		Short: "Reshape a saved raw result tree",
		Long: `Reshape a raw result tree (the output of "tally run --raw") into a
tree map hierarchy or a multi-series chart table. Use "-" to read stdin.

Examples:
  tally run q.cue --data meals.json --raw > raw.json
  tally format raw.json --as chart
  tally format - --as tree --root-label meals --palette "#111111,#222222" < raw.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", format.NameTree, fmt.Sprintf("output shape %v", format.Names()))
	cmd.Flags().StringVar(&opts.RootLabel, "root-label", "", `tree root label (default "root")`)
	cmd.Flags().StringSliceVar(&opts.Palette, "palette", nil, "colors by depth or series, e.g. #111111,#222222")

	return cmd
}

func runFormat(opts *FormatOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	f, err := format.ByName(opts.As, format.Options{
		RootLabel: opts.RootLabel,
		Palette:   paletteFrom(opts.Palette),
		IDs:       opts.IDs,
	})
	if err != nil {
		_ = out.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --as", err)
	}

	data, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		_ = out.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read raw result", err)
	}
	out.VerboseLog("Read %d bytes from %s", len(data), path)

	shaped, err := format.FormatJSON(f, data)
	if err != nil {
		_ = out.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, fmt.Sprintf("format %s", f.Name()), err)
	}
	return out.Success(shaped)
}

func paletteFrom(colors []string) format.Palette {
	if len(colors) == 0 {
		return format.Palette{}
	}
	return format.NewPalette(colors...)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		if stdin == nil {
			return nil, errors.New("no standard input")
		}
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
