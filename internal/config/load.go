package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// newViper creates a viper instance with defaults and DEPAUDIT_ env binding.
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("DEPAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults mirrors Default(). Keys must match the mapstructure tags.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.flagged_only", d.Output.FlaggedOnly)
	v.SetDefault("output.min_confidence", d.Output.MinConfidence)

	v.SetDefault("families.essential", []string{})
	v.SetDefault("families.large_utility", []string{})
	v.SetDefault("families.framework", []string{})
	v.SetDefault("families.sizes", []map[string]any{})

	v.SetDefault("ignore", []string{})

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.db_path", d.History.DBPath)

	v.SetDefault("watch.debounce", d.Watch.Debounce.String())
	v.SetDefault("audit.jobs", d.Audit.Jobs)
}

// Load reads the global and project config files, applies environment
// overrides and validates the result. Missing files are not an error.
func Load(ctx context.Context) (*Config, error) {
	global, err := GlobalPath()
	if err != nil {
		global = ""
	}
	return load(ctx, optional(ProjectFileName), optional(global))
}

// LoadFile loads an explicit config file on top of the defaults. Unlike the
// layered files, it must exist.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return load(ctx, path, "")
}

// LoadFromPaths loads configuration from specific file paths. Either may be
// empty to skip that layer; paths that do not exist are skipped.
func LoadFromPaths(ctx context.Context, projectPath, globalPath string) (*Config, error) {
	return load(ctx, optional(projectPath), optional(globalPath))
}

func load(ctx context.Context, projectPath, globalPath string) (*Config, error) {
	v := newViper()

	if globalPath != "" {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to read global config %s: %w", globalPath, err)
		}
	}

	if projectPath != "" {
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to read project config %s: %w", projectPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decoderOption()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("component", "config").
		Str("global", globalPath).
		Str("project", projectPath).
		Str("format", cfg.Output.Format).
		Dur("watch.debounce", cfg.Watch.Debounce).
		Int("ignore", len(cfg.Ignore)).
		Msg("configuration loaded")

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decoderOption lets durations be written as "750ms" in YAML and env vars.
func decoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}

// optional returns path if it names an existing file, else "".
func optional(path string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || os.IsNotExist(err)
}
