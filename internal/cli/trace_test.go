package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedDB runs the fixture inventory into a fresh database, once to
// fixpoint as "full" and once stopped by the round limit as "limited".
func recordedDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	_, err := executeRun(t, "text", "--inventory", "testdata/inventory.yaml", "--run-id", "full", "--trace-db", dbPath)
	require.NoError(t, err)
	_, err = executeRun(t, "text", "--inventory", "testdata/inventory.yaml", "--run-id", "limited", "--max-rounds", "2", "--trace-db", dbPath)
	require.Error(t, err)
	return dbPath
}

func executeTrace(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	return execute(t, NewTraceCommand(&RootOptions{Format: format}), args...)
}

func TestTraceCommandRequiresDB(t *testing.T) {
	_, err := executeTrace(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"db" not set`)
}

func TestTraceCommandListRuns(t *testing.T) {
	dbPath := recordedDB(t)

	out, err := executeTrace(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "full\nlimited\n", out)

	out, err = executeTrace(t, "json", "--db", dbPath)
	require.NoError(t, err)
	var data struct {
		Runs []string `json:"runs"`
	}
	decodeResponse(t, out, &data)
	assert.Equal(t, []string{"full", "limited"}, data.Runs)
}

func TestTraceCommandNoRuns(t *testing.T) {
	out, err := executeTrace(t, "text", "--db", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestTraceCommandUnknownRun(t *testing.T) {
	_, err := executeTrace(t, "text", "--db", recordedDB(t), "--run", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: nope")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceCommandText(t *testing.T) {
	out, err := executeTrace(t, "text", "--db", recordedDB(t), "--run", "full")
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for run: full")
	assert.Contains(t, out, "Status: fixpoint")
	assert.Contains(t, out, "[1] r1 GitLab -> create phoenix/api")
	assert.Contains(t, out, "Grafana links from README.md -> update phoenix/api add links=")
	assert.Contains(t, out, "(none)")
	assert.Contains(t, out, "Rounds:       3")
}

func TestTraceCommandStoppedRun(t *testing.T) {
	out, err := executeTrace(t, "text", "--db", recordedDB(t), "--run", "limited")
	require.NoError(t, err)
	assert.Contains(t, out, "Stopped:")
	assert.NotContains(t, out, "Grafana links from README.md ->")
}

func TestTraceCommandJSON(t *testing.T) {
	out, err := executeTrace(t, "json", "--db", recordedDB(t), "--run", "full")
	require.NoError(t, err)

	var result TraceResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "full", result.RunID)
	assert.Empty(t, result.Error)
	assert.Empty(t, result.Failures)
	assert.Equal(t, 3, result.Stats.Rounds)
	assert.Equal(t, result.Stats.Facts, len(result.Timeline))
	assert.Equal(t, 0, result.Stats.Failures)

	for i := 1; i < len(result.Timeline); i++ {
		assert.Greater(t, result.Timeline[i].Seq, result.Timeline[i-1].Seq)
	}
	first := result.Timeline[0]
	assert.Equal(t, "GitLab", first.Rule)
	assert.Empty(t, first.Component)
	assert.Equal(t, -1, first.Item)
	assert.True(t, first.Creates)
}

func TestTraceCommandComponentFilter(t *testing.T) {
	out, err := executeTrace(t, "json", "--db", recordedDB(t), "--run", "full", "--component", "phoenix/api")
	require.NoError(t, err)

	var result TraceResult
	decodeResponse(t, out, &result)
	require.NotEmpty(t, result.Timeline)
	for _, ev := range result.Timeline {
		assert.Equal(t, "phoenix/api", ev.Component)
		assert.NotEqual(t, "GitLab", ev.Rule)
	}
}
