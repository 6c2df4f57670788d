package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tally/internal/records"
)

// Scenario defines a query test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Query is the path of a query definition (.cue file, CUE package
	// directory or .yaml file), relative to the scenario file.
	Query string `yaml:"query"`

	// QueryName selects a query when the definition holds several.
	QueryName string `yaml:"query_name,omitempty"`

	// Records are the inline records to run against.
	Records []records.Record `yaml:"records,omitempty"`

	// RecordsFile is a JSON or YAML records file, relative to the scenario
	// file. Mutually exclusive with Records.
	RecordsFile string `yaml:"records_file,omitempty"`

	// Backend selects the record store: "memory" (default) or "sqlite".
	Backend string `yaml:"backend,omitempty"`

	// Now fixes the clock as a YYYY-MM-DD date. Defaults to DefaultNow.
	Now string `yaml:"now,omitempty"`

	// Assertions validate the run.
	// Supported types: labels, value, node_count, error
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the result tree or the run error.
type Assertion struct {
	// Type specifies the assertion type:
	// - "labels": labels of the tree at Path
	// - "value": scalar at Path
	// - "node_count": total node count
	// - "error": the run failed
	Type string `yaml:"type"`

	// Path walks group labels from the root (labels, value).
	Path []string `yaml:"path,omitempty"`

	// Labels are the expected labels, in order (labels).
	Labels []string `yaml:"labels,omitempty"`

	// Value is the expected scalar (value).
	Value *float64 `yaml:"value,omitempty"`

	// Count is the expected node count (node_count).
	Count int `yaml:"count,omitempty"`

	// Contains is a substring of the expected error message (error).
	Contains string `yaml:"contains,omitempty"`

	// Code is the expected error code, e.g. "E104" or "DEPTH_MISMATCH" (error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertLabels    = "labels"
	AssertValue     = "value"
	AssertNodeCount = "node_count"
	AssertError     = "error"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// DefaultNow is the clock used when a scenario does not set one.
const DefaultNow = "2024-01-01"

// LoadScenario reads and parses a scenario YAML file. Relative query and
// records paths are resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving query and records paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths BEFORE validation so existence checks see the real files
	scenario.Query = resolve(basePath, scenario.Query)
	scenario.RecordsFile = resolve(basePath, scenario.RecordsFile)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(basePath, p string) string {
	if p == "" || filepath.IsAbs(p) || basePath == "" {
		return p
	}
	return filepath.Join(basePath, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Query == "" {
		return fmt.Errorf("query is required")
	}
	if _, err := os.Stat(s.Query); os.IsNotExist(err) {
		return fmt.Errorf("query file not found: %s", s.Query)
	}

	if len(s.Records) > 0 && s.RecordsFile != "" {
		return fmt.Errorf("records and records_file are mutually exclusive")
	}
	if s.RecordsFile != "" {
		if _, err := os.Stat(s.RecordsFile); os.IsNotExist(err) {
			return fmt.Errorf("records file not found: %s", s.RecordsFile)
		}
	}

	switch s.Backend {
	case "", BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", s.Backend, BackendMemory, BackendSQLite)
	}

	if s.Now != "" {
		if _, err := time.Parse(time.DateOnly, s.Now); err != nil {
			return fmt.Errorf("now: %q is not a YYYY-MM-DD date", s.Now)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLabels:
		if a.Labels == nil {
			return fmt.Errorf("assertions[%d]: labels list is required for labels (use [] for none)", index)
		}
	case AssertValue:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for value", index)
		}
		if len(a.Path) == 0 {
			return fmt.Errorf("assertions[%d]: path is required for value", index)
		}
	case AssertNodeCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for node_count", index)
		}
	case AssertError:
		if a.Contains == "" && a.Code == "" {
			return fmt.Errorf("assertions[%d]: contains or code is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// LoadRecords returns the scenario's records: the inline list, the records
// file, or none.
func (s *Scenario) LoadRecords() ([]records.Record, error) {
	if s.RecordsFile != "" {
		return records.DecodeFile(s.RecordsFile)
	}
	return slices.Clone(s.Records), nil
}
