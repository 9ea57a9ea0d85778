// Package config loads depaudit settings with layered precedence.
//
// Sources, highest precedence first:
//  1. CLI flags (applied by the caller)
//  2. Environment variables (DEPAUDIT_* prefix, "." replaced by "_")
//  3. Project config (.depaudit.yaml in the working directory)
//  4. Global config ($XDG_CONFIG_HOME/depaudit/config.yaml)
//  5. Built-in defaults
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Report formats accepted by output.format.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatSARIF = "sarif"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatTable, FormatJSON, FormatYAML, FormatSARIF}

// ProjectFileName is the per-project config file, looked up in the working directory.
const ProjectFileName = ".depaudit.yaml"

// Config is the root configuration.
type Config struct {
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Families FamiliesConfig `yaml:"families" mapstructure:"families"`

	// Ignore holds glob patterns matched against group:artifact and
	// group:artifact:version. Matching declarations are left out of reports.
	Ignore []string `yaml:"ignore" mapstructure:"ignore"`

	History HistoryConfig `yaml:"history" mapstructure:"history"`
	Watch   WatchConfig   `yaml:"watch" mapstructure:"watch"`
	Audit   AuditConfig   `yaml:"audit" mapstructure:"audit"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format        string `yaml:"format" mapstructure:"format"`
	FlaggedOnly   bool   `yaml:"flagged_only" mapstructure:"flagged_only"`
	MinConfidence int    `yaml:"min_confidence" mapstructure:"min_confidence"`
}

// FamiliesConfig extends the classifier's built-in name tables.
type FamiliesConfig struct {
	Essential    []string    `yaml:"essential" mapstructure:"essential"`
	LargeUtility []string    `yaml:"large_utility" mapstructure:"large_utility"`
	Framework    []string    `yaml:"framework" mapstructure:"framework"`
	Sizes        []SizeEntry `yaml:"sizes" mapstructure:"sizes"`
}

// SizeEntry overrides the estimated size for artifacts containing Fragment.
// Entries are a list rather than a map because fragments such as
// "androidx.core" contain dots, which viper treats as key separators.
type SizeEntry struct {
	Fragment string  `yaml:"fragment" mapstructure:"fragment"`
	MB       float64 `yaml:"mb" mapstructure:"mb"`
}

// SizeMap returns the size overrides keyed by fragment. Later entries win.
func (f FamiliesConfig) SizeMap() map[string]float64 {
	if len(f.Sizes) == 0 {
		return nil
	}
	m := make(map[string]float64, len(f.Sizes))
	for _, e := range f.Sizes {
		m[e.Fragment] = e.MB
	}
	return m
}

// HistoryConfig controls the audit history database.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// DBPath overrides the database location. Empty means ~/.depaudit/depaudit.db.
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// AuditConfig controls multi-manifest audits.
type AuditConfig struct {
	Jobs int `yaml:"jobs" mapstructure:"jobs"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Output:  OutputConfig{Format: FormatTable},
		History: HistoryConfig{Enabled: true},
		Watch:   WatchConfig{Debounce: 500 * time.Millisecond},
		Audit:   AuditConfig{Jobs: 4},
	}
}

// Dir returns the depaudit config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/depaudit if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "depaudit"), nil
}

// GlobalPath returns the global config file path.
func GlobalPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}
