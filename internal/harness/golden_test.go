package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/pipeline"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"calories_by_meal", "foods_by_month"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Deterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "calories_by_meal.yaml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := Snapshot(s.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSnapshot_RunError(t *testing.T) {
	result := NewResult()
	result.Query = "q"
	result.RunError = "boom"

	data, err := Snapshot("failing", result)
	require.NoError(t, err)
	assert.Equal(t, `{"error":"boom","query":"q","scenario_name":"failing"}`, string(data))
}

func TestSnapshot_OmitsHandles(t *testing.T) {
	result := NewResult()
	result.Raw = pipeline.HandleResult{}

	data, err := Snapshot("handle", result)
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"handle"}`, string(data))
}

func TestSnapshot_SentinelLeaves(t *testing.T) {
	result := NewResult()
	result.Raw = pipeline.Tree{{Label: "a", Values: pipeline.NoValue}, {Label: "b", Unlabeled: true, Values: pipeline.Scalar(1.5)}}

	data, err := Snapshot("sentinel", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"raw":[{"label":"a","values":"ERROR:NOVALUEFUNCTION"},{"label":"b","unlabeled":true,"values":1.5}],"scenario_name":"sentinel"}`,
		string(data))
}
