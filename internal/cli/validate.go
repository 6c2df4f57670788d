package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/compare"
	"github.com/roach88/tally/internal/compiler"
	"github.com/roach88/tally/internal/ir"
	"github.com/roach88/tally/internal/pipeline"
	"github.com/roach88/tally/internal/queryir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Queries []QueryReport     `json:"queries,omitempty"`
	Errors  []ValidationIssue `json:"errors,omitempty"`
}

// QueryReport describes one query that compiled.
type QueryReport struct {
	Name     string   `json:"name"`
	Source   string   `json:"source"`
	Stages   string   `json:"stages"`
	Hash     string   `json:"hash"`
	Pushdown bool     `json:"pushdown"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidationIssue is one query that failed to compile.
type ValidationIssue struct {
	Code    string `json:"code"`
	Query   string `json:"query,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <query-path>",
		Short: "Validate query definitions without running them",
		Long: `Compile every query in a .cue file, a .yaml file or a CUE package
directory and report all problems at once.

Queries that compile are also checked for predicates that silently widen
or empty their result (ranges without bounds, regexes that do not compile)
and for regex operators the SQLite backend evaluates through a helper
function.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadQueries(path, LoadModeCollectAll)

	// Path-level failures: nothing was compiled.
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Read %d query file(s) from %s", loadResult.FileCount, path)

	result := ValidationResult{Valid: len(loadErrors) == 0}
	for _, err := range loadErrors {
		result.Errors = append(result.Errors, toIssue(err))
	}

	for i := range loadResult.Queries {
		spec := &loadResult.Queries[i]
		formatter.VerboseLog("Validating query: %s", spec.Name)

		report, err := inspectQuery(spec)
		if err != nil {
			issue := toIssue(convertCompileError(err, "query."+spec.Name))
			issue.Query = spec.Name
			if issue.Code == ErrCodeGeneric {
				issue.Code = errorCode(err)
			}
			result.Errors = append(result.Errors, issue)
			result.Valid = false
			continue
		}
		result.Queries = append(result.Queries, report)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// inspectQuery builds spec and collects predicate warnings from every
// filter and group bucket.
func inspectQuery(spec *ir.QuerySpec) (QueryReport, error) {
	stages, _, err := compiler.Build(spec)
	if err != nil {
		return QueryReport{}, err
	}
	entry, err := pipeline.Compose(stages...)
	if err != nil {
		return QueryReport{}, err
	}
	hash, err := ir.QueryHash(*spec)
	if err != nil {
		return QueryReport{}, err
	}

	report := QueryReport{
		Name:     spec.Name,
		Source:   spec.Source,
		Stages:   pipeline.Describe(entry),
		Hash:     hash,
		Pushdown: true,
	}
	for i, stage := range stages {
		preds, err := stagePredicates(stage)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("stages[%d]: %v", i, err))
			continue
		}
		for _, p := range preds {
			vr := queryir.Validate(p)
			report.Pushdown = report.Pushdown && vr.Pushdown
			for _, w := range vr.Warnings {
				report.Warnings = append(report.Warnings, fmt.Sprintf("stages[%d]: %s", i, w))
			}
		}
	}
	return report, nil
}

// stagePredicates returns the predicates a stage evaluates: the filter
// predicate, or one per group bucket.
func stagePredicates(stage pipeline.Stage) ([]queryir.Predicate, error) {
	switch s := stage.(type) {
	case interface{ Predicate() queryir.Predicate }:
		return []queryir.Predicate{s.Predicate()}, nil
	case pipeline.StringGroup:
		preds := make([]queryir.Predicate, 0, len(s.Values))
		for _, v := range s.Values {
			preds = append(preds, queryir.NewStringMatch(s.Field, v))
		}
		return preds, nil
	case pipeline.NumberGroup:
		preds := make([]queryir.Predicate, 0, len(s.Values))
		for _, v := range s.Values {
			preds = append(preds, queryir.NumberIn{Field: s.Field, Ranges: []compare.NumberRange{v}})
		}
		return preds, nil
	case pipeline.DateGroup:
		ranges, err := s.Ranges()
		if err != nil {
			return nil, err
		}
		preds := make([]queryir.Predicate, 0, len(ranges))
		for _, r := range ranges {
			preds = append(preds, queryir.DateIn{Field: s.Field, Ranges: []compare.DateRange{r}, Julian: s.Julian})
		}
		return preds, nil
	}
	return nil, nil
}

func toIssue(err error) ValidationIssue {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		issue := ValidationIssue{Code: loadErr.Code, Query: loadErr.Query, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			issue.Line = loadErr.Pos.Line()
		}
		return issue
	}
	return ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d quer%s valid\n", len(result.Queries), plural(len(result.Queries), "y", "ies"))
	writeQueryReports(formatter, result.Queries)
	return nil
}

// outputValidateError outputs a path-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs per-query failures.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.Format == "json" {
		first := result.Errors[0]
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: first.Code, Message: first.Message},
		}
		if err := writeIndented(formatter.Writer, response); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range result.Errors {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	writeQueryReports(formatter, result.Queries)
	return exitErr
}

func writeQueryReports(formatter *OutputFormatter, reports []QueryReport) {
	for _, r := range reports {
		fmt.Fprintf(formatter.Writer, "  %s (%s): %s\n", r.Name, r.Source, r.Stages)
		for _, w := range r.Warnings {
			fmt.Fprintf(formatter.Writer, "    warning: %s\n", w)
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
