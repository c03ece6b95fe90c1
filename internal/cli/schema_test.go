package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sysa/internal/catalog"
)

func executeSchema(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	return execute(t, NewSchemaCommand(&RootOptions{Format: format}), args...)
}

func TestSchemaCommandCatalog(t *testing.T) {
	out, err := executeSchema(t, "text")
	require.NoError(t, err)

	assert.Contains(t, out, "readme")
	assert.Contains(t, out, "instances")
	assert.NotContains(t, out, "owner")
}

func TestSchemaCommandMerged(t *testing.T) {
	out, err := executeSchema(t, "json", "testdata/extra.cue")
	require.NoError(t, err)

	var data struct {
		Slots []SlotInfo `json:"slots"`
	}
	resp := decodeResponse(t, out, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, data.Slots, catalog.Schema().Len()+2)

	last := data.Slots[len(data.Slots)-2:]
	assert.Equal(t, []SlotInfo{
		{Name: "owner", Kind: "single", Type: "string", Doc: "owning team's contact"},
		{Name: "runbook", Kind: "multi", Type: "string"},
	}, last)
}

func TestSchemaCommandStandalone(t *testing.T) {
	out, err := executeSchema(t, "text", "testdata/extra.cue", "--standalone")
	require.NoError(t, err)

	assert.Contains(t, out, "2 slots")
	assert.Contains(t, out, "// owning team's contact")
	assert.NotContains(t, out, "readme")
}

func TestSchemaCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"conflict with catalog", []string{"testdata/conflict.cue"}},
		{"missing file", []string{"testdata/missing.cue"}},
		{"not cue", []string{"testdata/inventory.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeSchema(t, "text", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestSchemaCommandConflictStandalone(t *testing.T) {
	_, err := executeSchema(t, "text", "testdata/conflict.cue", "--standalone")
	require.NoError(t, err)
}
