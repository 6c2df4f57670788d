package harness

import "github.com/roach88/tally/internal/pipeline"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Query is the name of the query that ran.
	Query string `json:"query"`

	// Describe renders the composed stage chain. Empty when the query did
	// not compile.
	Describe string `json:"describe,omitempty"`

	// Raw is the result tree. Nil when the run failed.
	Raw pipeline.Result `json:"raw,omitempty"`

	// Formatted is Raw after the query's formatter ran.
	Formatted any `json:"formatted,omitempty"`

	// RunError is the compile or execution failure, if any. Error
	// assertions are evaluated against it.
	RunError string `json:"run_error,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	runErr error
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Err returns the compile or execution failure, if any.
func (r *Result) Err() error {
	return r.runErr
}

func (r *Result) setRunError(err error) {
	r.runErr = err
	r.RunError = err.Error()
}
