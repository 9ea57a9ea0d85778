package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// Validate checks a loaded configuration. Every error wraps ErrInvalidConfig.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	if !slices.Contains(Formats, cfg.Output.Format) {
		return fmt.Errorf("%w: output.format %q must be one of %s",
			ErrInvalidConfig, cfg.Output.Format, strings.Join(Formats, ", "))
	}

	if cfg.Output.MinConfidence < 0 || cfg.Output.MinConfidence > 100 {
		return fmt.Errorf("%w: output.min_confidence %d must be between 0 and 100",
			ErrInvalidConfig, cfg.Output.MinConfidence)
	}

	for i, e := range cfg.Families.Sizes {
		if strings.TrimSpace(e.Fragment) == "" {
			return fmt.Errorf("%w: families.sizes[%d] has an empty fragment", ErrInvalidConfig, i)
		}
		if e.MB < 0 {
			return fmt.Errorf("%w: families.sizes[%d] (%s) has negative size %.2f",
				ErrInvalidConfig, i, e.Fragment, e.MB)
		}
	}

	for _, p := range cfg.Ignore {
		if _, err := glob.Compile(p, ':'); err != nil {
			return fmt.Errorf("%w: ignore pattern %q: %v", ErrInvalidConfig, p, err)
		}
	}

	if cfg.Watch.Debounce <= 0 {
		return fmt.Errorf("%w: watch.debounce must be positive, got %s", ErrInvalidConfig, cfg.Watch.Debounce)
	}

	if cfg.Audit.Jobs <= 0 {
		return fmt.Errorf("%w: audit.jobs must be positive, got %d", ErrInvalidConfig, cfg.Audit.Jobs)
	}

	return nil
}
