package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blackwell-systems/depaudit/internal/analyzer"
	"github.com/blackwell-systems/depaudit/internal/config"
	"github.com/blackwell-systems/depaudit/internal/evidence"
	"github.com/blackwell-systems/depaudit/internal/manifest"
	"github.com/blackwell-systems/depaudit/internal/store"
)

// defaultManifests are tried in order when no manifest is named.
var defaultManifests = []string{"build.gradle.kts", "build.gradle"}

// ErrNoManifest is returned when no manifest was given and none exists in
// the working directory.
var ErrNoManifest = errors.New("no build.gradle.kts or build.gradle in the current directory")

// resolveManifests returns args as absolute paths, or the default manifest
// of the working directory when args is empty.
func resolveManifests(args []string) ([]string, error) {
	if len(args) == 0 {
		for _, name := range defaultManifests {
			if _, err := os.Stat(name); err == nil {
				args = []string{name}
				break
			}
		}
		if len(args) == 0 {
			return nil, ErrNoManifest
		}
	}

	paths := make([]string, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", a, err)
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		paths = append(paths, abs)
	}
	return paths, nil
}

// readManifest returns the lines of a manifest file.
func readManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	defer f.Close()

	lines, err := manifest.ReadLines(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return lines, nil
}

// newClassifier builds a classifier with the family and size overrides from
// cfg layered on the built-in tables.
func newClassifier(cfg *config.Config) *analyzer.Classifier {
	var opts []analyzer.Option
	if len(cfg.Families.Essential) > 0 {
		opts = append(opts, analyzer.WithEssential(cfg.Families.Essential...))
	}
	if len(cfg.Families.LargeUtility) > 0 {
		opts = append(opts, analyzer.WithLargeUtility(cfg.Families.LargeUtility...))
	}
	if len(cfg.Families.Framework) > 0 {
		opts = append(opts, analyzer.WithFramework(cfg.Families.Framework...))
	}
	if sizes := cfg.Families.SizeMap(); sizes != nil {
		opts = append(opts, analyzer.WithSizes(sizes))
	}
	return analyzer.New(opts...)
}

// loadEvidence reads the evidence file named by one of the flags. It
// returns a nil set, selecting heuristic mode, when neither is set.
func loadEvidence(coordinatesPath, treePath string) (*evidence.Set, error) {
	switch {
	case coordinatesPath != "" && treePath != "":
		return nil, errors.New("--evidence and --gradle-tree cannot be used together")
	case coordinatesPath != "":
		return evidence.LoadFile(coordinatesPath, evidence.FormatCoordinates)
	case treePath != "":
		return evidence.LoadFile(treePath, evidence.FormatGradleTree)
	default:
		return nil, nil
	}
}

// openStore opens the history database and creates its schema.
func openStore(cfg *config.Config) (*store.Store, error) {
	path, err := getDBPath(cfg)
	if err != nil {
		return nil, err
	}

	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return st, nil
}

// openExistingStore opens the history database without creating it, for
// read-only commands.
func openExistingStore(cfg *config.Config) (*store.Store, error) {
	path, err := getDBPath(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, store.ErrNotInitialized
	}

	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}
