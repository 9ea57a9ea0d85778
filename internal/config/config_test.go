package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDir_RespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "depaudit"), dir)

	path, err := GlobalPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "depaudit", "config.yaml"), path)
}

func TestLoadFromPaths_Defaults(t *testing.T) {
	cfg, err := LoadFromPaths(context.Background(), "", "")
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Output, cfg.Output)
	assert.Equal(t, def.History, cfg.History)
	assert.Equal(t, def.Watch, cfg.Watch)
	assert.Equal(t, def.Audit, cfg.Audit)
	assert.Empty(t, cfg.Ignore)
	assert.Empty(t, cfg.Families.Sizes)
	assert.Nil(t, cfg.Families.SizeMap())
}

func TestLoadFromPaths_MissingFilesSkipped(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromPaths(context.Background(),
		filepath.Join(dir, "nope.yaml"), filepath.Join(dir, "also-nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, FormatTable, cfg.Output.Format)
}

func TestLoadFromPaths_ProjectOverridesGlobal(t *testing.T) {
	dir := t.TempDir()
	global := writeConfig(t, dir, "global.yaml", `
output:
  format: json
  min_confidence: 60
watch:
  debounce: 2s
audit:
  jobs: 2
`)
	project := writeConfig(t, dir, "project.yaml", `
output:
  format: sarif
  flagged_only: true
families:
  large_utility: [lodash]
  sizes:
    - fragment: androidx.core
      mb: 0.9
ignore:
  - "com.google.guava:*"
history:
  enabled: false
  db_path: /tmp/history.db
`)

	cfg, err := LoadFromPaths(context.Background(), project, global)
	require.NoError(t, err)

	assert.Equal(t, FormatSARIF, cfg.Output.Format)
	assert.True(t, cfg.Output.FlaggedOnly)
	assert.Equal(t, 60, cfg.Output.MinConfidence, "global value survives the merge")
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Equal(t, 2, cfg.Audit.Jobs)
	assert.Equal(t, []string{"lodash"}, cfg.Families.LargeUtility)
	assert.Equal(t, []SizeEntry{{Fragment: "androidx.core", MB: 0.9}}, cfg.Families.Sizes)
	assert.Equal(t, map[string]float64{"androidx.core": 0.9}, cfg.Families.SizeMap())
	assert.Equal(t, []string{"com.google.guava:*"}, cfg.Ignore)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "/tmp/history.db", cfg.History.DBPath)
}

func TestLoadFromPaths_EnvOverridesFiles(t *testing.T) {
	dir := t.TempDir()
	project := writeConfig(t, dir, "project.yaml", "output:\n  format: json\n")

	t.Setenv("DEPAUDIT_OUTPUT_FORMAT", "yaml")
	t.Setenv("DEPAUDIT_WATCH_DEBOUNCE", "750ms")

	cfg, err := LoadFromPaths(context.Background(), project, "")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, cfg.Output.Format)
	assert.Equal(t, 750*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoadFromPaths_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	project := writeConfig(t, dir, "project.yaml", "output:\n  format: html\n")

	_, err := LoadFromPaths(context.Background(), project, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "html")
}

func TestLoadFromPaths_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	project := writeConfig(t, dir, "project.yaml", "output: [unclosed\n")

	_, err := LoadFromPaths(context.Background(), project, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read project config")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(context.Background(), filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := writeConfig(t, dir, "custom.yaml", "audit:\n  jobs: 8\n")
	cfg, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Audit.Jobs)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"confidence too low", func(c *Config) { c.Output.MinConfidence = -1 }, "min_confidence"},
		{"confidence too high", func(c *Config) { c.Output.MinConfidence = 101 }, "min_confidence"},
		{"negative size", func(c *Config) {
			c.Families.Sizes = []SizeEntry{{Fragment: "guava", MB: -2}}
		}, "negative size"},
		{"empty size fragment", func(c *Config) {
			c.Families.Sizes = []SizeEntry{{Fragment: " ", MB: 2}}
		}, "empty fragment"},
		{"bad ignore glob", func(c *Config) { c.Ignore = []string{"com.[x"} }, "ignore pattern"},
		{"zero debounce", func(c *Config) { c.Watch.Debounce = 0 }, "watch.debounce"},
		{"zero jobs", func(c *Config) { c.Audit.Jobs = 0 }, "audit.jobs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.ErrorIs(t, Validate(nil), ErrInvalidConfig)
}
