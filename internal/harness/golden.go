package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tally/internal/ir"
	"github.com/roach88/tally/internal/pipeline"
)

// ResultSnapshot captures what a scenario produced.
// All fields use canonical JSON serialization for deterministic comparison.
type ResultSnapshot struct {
	ScenarioName string          `json:"scenario_name"`
	Query        string          `json:"query,omitempty"`
	Stages       string          `json:"stages,omitempty"`
	Raw          pipeline.Result `json:"raw,omitempty"`
	Formatted    any             `json:"formatted,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// toCanonicalMap converts a ResultSnapshot to a map[string]any for canonical
// JSON serialization. Results and formatter output are routed through their
// json encodings so the snapshot holds only JSON primitives.
func (s *ResultSnapshot) toCanonicalMap() (map[string]any, error) {
	out := map[string]any{"scenario_name": s.ScenarioName}
	if s.Query != "" {
		out["query"] = s.Query
	}
	if s.Stages != "" {
		out["stages"] = s.Stages
	}
	if s.Error != "" {
		out["error"] = s.Error
	}
	if s.Raw != nil {
		v, err := generic(s.Raw)
		if err != nil {
			return nil, err
		}
		out["raw"] = v
	}
	if s.Formatted != nil {
		v, err := generic(s.Formatted)
		if err != nil {
			return nil, err
		}
		out["formatted"] = v
	}
	return out, nil
}

func generic(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot builds the canonical JSON snapshot of a result.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snap := ResultSnapshot{
		ScenarioName: scenarioName,
		Query:        result.Query,
		Stages:       result.Describe,
		Raw:          result.Raw,
		Formatted:    result.Formatted,
		Error:        result.RunError,
	}
	if _, isHandle := snap.Raw.(pipeline.HandleResult); isHandle {
		snap.Raw = nil
	}
	m, err := snap.toCanonicalMap()
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(m)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := execute(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
