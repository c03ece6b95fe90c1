package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sysa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadRunConfig(t *testing.T) {
	cfg, err := LoadRunConfig("testdata/sysa.yaml")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "inventory.yaml"), cfg.Inventory)
	assert.Equal(t, 2, cfg.MaxRounds)
	require.NotNil(t, cfg.Concurrency)
	assert.Equal(t, 4, *cfg.Concurrency)
	assert.Equal(t, "config-run", cfg.RunID)
	assert.Nil(t, cfg.CycleDetection)

	d, err := cfg.timeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
}

func TestLoadRunConfigPaths(t *testing.T) {
	path := writeConfig(t, "inventory: inv.yaml\nschema: /abs/extra.cue\ntrace_db: runs.db\n")
	dir := filepath.Dir(path)

	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "inv.yaml"), cfg.Inventory)
	assert.Equal(t, "/abs/extra.cue", cfg.Schema)
	assert.Equal(t, filepath.Join(dir, "runs.db"), cfg.TraceDB)
}

func TestLoadRunConfigEmpty(t *testing.T) {
	cfg, err := LoadRunConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, &RunConfig{}, cfg)
}

func TestLoadRunConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown field", "inventroy: inv.yaml\n", "inventroy"},
		{"negative rounds", "max_rounds: -1\n", "max_rounds"},
		{"negative concurrency", "concurrency: -2\n", "concurrency"},
		{"bad timeout", "invocation_timeout: soon\n", "invocation_timeout"},
		{"negative timeout", "invocation_timeout: -1s\n", "invocation_timeout"},
		{"not yaml", "inventory: [\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRunConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRunConfigMissing(t *testing.T) {
	_, err := LoadRunConfig("testdata/does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestRunConfigCatalogOptions(t *testing.T) {
	opts := (&RunConfig{}).catalogOptions()
	assert.Equal(t, "phoenix", opts.ProjectPrefix)
	assert.Equal(t, "/phoenix/", opts.AppPrefix)

	opts = (&RunConfig{ProjectPrefix: "tools", AppPrefix: "/tools/"}).catalogOptions()
	assert.Equal(t, "tools", opts.ProjectPrefix)
	assert.Equal(t, "/tools/", opts.AppPrefix)
}
