package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/store"
)

func TestLoadAppendsAndReplaces(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tally.db")

	out, err := executeCommand(NewLoadCommand(&RootOptions{Format: "text"}), mealsRecords, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 5 record(s) into meals")
	assert.Contains(t, out, "  meals: 5")

	out, err = executeCommand(NewLoadCommand(&RootOptions{Format: "json"}), mealsRecords, "--db", dbPath, "--dataset", "meals")
	require.NoError(t, err)
	var result LoadOutput
	decodeData(t, out, &result)
	assert.Equal(t, 5, result.Written)
	assert.Equal(t, []store.DatasetInfo{{Name: "meals", Count: 10}}, result.Datasets)

	out, err = executeCommand(NewLoadCommand(&RootOptions{Format: "json"}), mealsRecords, "--db", dbPath, "--dataset", "meals", "--replace")
	require.NoError(t, err)
	decodeData(t, out, &result)
	assert.True(t, result.Replaced)
	assert.Equal(t, []store.DatasetInfo{{Name: "meals", Count: 5}}, result.Datasets)
}

func TestLoadListsDatasets(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tally.db")

	_, err := executeCommand(NewLoadCommand(&RootOptions{Format: "text"}), mealsRecords, "--db", dbPath, "--dataset", "b")
	require.NoError(t, err)
	_, err = executeCommand(NewLoadCommand(&RootOptions{Format: "text"}), mealsRecords, "--db", dbPath, "--dataset", "a")
	require.NoError(t, err)

	out, err := executeCommand(NewLoadCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)

	var result LoadOutput
	decodeData(t, out, &result)
	assert.Empty(t, result.Dataset)
	assert.Zero(t, result.Written)
	assert.Equal(t, []store.DatasetInfo{{Name: "a", Count: 5}, {Name: "b", Count: 5}}, result.Datasets)
}

func TestLoadRequiresDatabase(t *testing.T) {
	_, err := executeCommand(NewLoadCommand(&RootOptions{Format: "text"}), mealsRecords)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestLoadUnreadableRecords(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tally.db")

	out, err := executeCommand(NewLoadCommand(&RootOptions{Format: "json"}), "testdata/meals.cue", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeData(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeBadInput, resp.Error.Code)
}
