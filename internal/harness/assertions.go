package harness

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/tally/internal/compiler"
	"github.com/roach88/tally/internal/pipeline"
)

// valueTolerance absorbs float noise in sums such as 0.1 + 0.2.
const valueTolerance = 1e-9

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Path     []string // Label path the assertion looked at
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Labels   []string // Root labels of the result, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if len(e.Path) > 0 {
		fmt.Fprintf(&buf, " at %s", formatPath(e.Path))
	}
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Labels != nil {
		fmt.Fprintf(&buf, "\nRoot labels: %v\n", e.Labels)
	}
	return buf.String()
}

func formatPath(path []string) string {
	if len(path) == 0 {
		return "(root)"
	}
	return strings.Join(path, " > ")
}

// walk follows path from the root and returns the result it names.
func walk(root pipeline.Result, path []string) (pipeline.Result, error) {
	cur := root
	for i, label := range path {
		tree, ok := cur.(pipeline.Tree)
		if !ok {
			return nil, fmt.Errorf("%s is not a group (got %s)", formatPath(path[:i]), describeResult(cur))
		}
		idx := slices.IndexFunc(tree, func(n pipeline.Node) bool { return n.Label == label })
		if idx < 0 {
			return nil, fmt.Errorf("no group %q under %s (have %v)", label, formatPath(path[:i]), tree.Labels())
		}
		cur = tree[idx].Values
	}
	return cur, nil
}

func describeResult(r pipeline.Result) string {
	switch v := r.(type) {
	case nil:
		return "no result"
	case pipeline.Tree:
		return fmt.Sprintf("groups %v", v.Labels())
	case pipeline.Scalar:
		return fmt.Sprintf("value %v", float64(v))
	case pipeline.Sentinel:
		return fmt.Sprintf("sentinel %s", string(v))
	case pipeline.HandleResult:
		return "a record handle"
	default:
		return fmt.Sprintf("%T", r)
	}
}

func rootLabels(r pipeline.Result) []string {
	if t, ok := r.(pipeline.Tree); ok {
		return t.Labels()
	}
	return nil
}

// assertLabels checks the labels of the tree at the assertion's path.
func assertLabels(result *Result, assertion Assertion) error {
	target, err := walk(result.Raw, assertion.Path)
	if err != nil {
		return &AssertionError{Type: AssertLabels, Path: assertion.Path, Expected: fmt.Sprintf("labels %v", assertion.Labels), Actual: err.Error(), Labels: rootLabels(result.Raw)}
	}
	tree, ok := target.(pipeline.Tree)
	if !ok {
		return &AssertionError{Type: AssertLabels, Path: assertion.Path, Expected: fmt.Sprintf("labels %v", assertion.Labels), Actual: describeResult(target), Labels: rootLabels(result.Raw)}
	}
	if got := tree.Labels(); !slices.Equal(got, assertion.Labels) {
		return &AssertionError{Type: AssertLabels, Path: assertion.Path, Expected: fmt.Sprintf("labels %v", assertion.Labels), Actual: fmt.Sprintf("labels %v", got), Labels: rootLabels(result.Raw)}
	}
	return nil
}

// assertValue checks the scalar at the assertion's path.
func assertValue(result *Result, assertion Assertion) error {
	want := *assertion.Value
	target, err := walk(result.Raw, assertion.Path)
	if err != nil {
		return &AssertionError{Type: AssertValue, Path: assertion.Path, Expected: fmt.Sprintf("value %v", want), Actual: err.Error(), Labels: rootLabels(result.Raw)}
	}
	got, ok := target.(pipeline.Scalar)
	if !ok {
		return &AssertionError{Type: AssertValue, Path: assertion.Path, Expected: fmt.Sprintf("value %v", want), Actual: describeResult(target), Labels: rootLabels(result.Raw)}
	}
	if math.Abs(float64(got)-want) > valueTolerance {
		return &AssertionError{Type: AssertValue, Path: assertion.Path, Expected: fmt.Sprintf("value %v", want), Actual: fmt.Sprintf("value %v", float64(got))}
	}
	return nil
}

// assertNodeCount checks the total number of nodes.
func assertNodeCount(result *Result, assertion Assertion) error {
	if got := pipeline.CountNodes(result.Raw); got != assertion.Count {
		return &AssertionError{
			Type:     AssertNodeCount,
			Expected: fmt.Sprintf("%d nodes", assertion.Count),
			Actual:   fmt.Sprintf("%d nodes", got),
			Labels:   rootLabels(result.Raw),
		}
	}
	return nil
}

// assertError checks that the run failed as expected.
func assertError(result *Result, assertion Assertion) error {
	err := result.Err()
	want := describeExpectedError(assertion)
	if err == nil {
		return &AssertionError{Type: AssertError, Expected: want, Actual: "run succeeded"}
	}
	if assertion.Contains != "" && !strings.Contains(err.Error(), assertion.Contains) {
		return &AssertionError{Type: AssertError, Expected: want, Actual: err.Error()}
	}
	if assertion.Code != "" && !hasCode(err, assertion.Code) {
		return &AssertionError{Type: AssertError, Expected: want, Actual: err.Error()}
	}
	return nil
}

func describeExpectedError(a Assertion) string {
	var parts []string
	if a.Code != "" {
		parts = append(parts, "code "+a.Code)
	}
	if a.Contains != "" {
		parts = append(parts, fmt.Sprintf("message containing %q", a.Contains))
	}
	return "error with " + strings.Join(parts, " and ")
}

// hasCode matches compiler validation codes ("E104") and pipeline error
// codes ("VALUE_NOT_LAST", "DEPTH_MISMATCH").
func hasCode(err error, code string) bool {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return ce.Code() == code
	}
	var cfg *pipeline.ConfigError
	if errors.As(err, &cfg) {
		return string(cfg.Code) == code
	}
	var se *pipeline.ShapeError
	if errors.As(err, &se) {
		return string(se.Code) == code
	}
	return false
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
//
// A run error with no error assertion to claim it is itself a failure, and
// tree assertions are skipped for a run that failed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	expectsError := slices.ContainsFunc(assertions, func(a Assertion) bool { return a.Type == AssertError })
	if result.Err() != nil && !expectsError {
		errs = append(errs, fmt.Sprintf("run failed: %v", result.Err()))
	}

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertLabels:
			if result.Err() == nil {
				err = assertLabels(result, assertion)
			}
		case AssertValue:
			if assertion.Value == nil {
				err = fmt.Errorf("assertion[%d]: value assertion without a value", i)
			} else if result.Err() == nil {
				err = assertValue(result, assertion)
			}
		case AssertNodeCount:
			if result.Err() == nil {
				err = assertNodeCount(result, assertion)
			}
		case AssertError:
			err = assertError(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
