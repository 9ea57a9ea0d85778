// Package evidence loads the set of dependency coordinates known to take part
// in a build's resolved dependency graph.
//
// The set is produced outside the analyzer, typically from a saved
// `gradle dependencies` report or a plain list of coordinates, and is only
// ever consulted with exact membership tests.
package evidence

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrEmptyEvidence is returned when an evidence source contains no usable
// coordinates. Classifying against an empty set would flag every dependency.
var ErrEmptyEvidence = errors.New("evidence contains no coordinates")

// Format selects how an evidence file is parsed.
type Format string

const (
	FormatCoordinates Format = "coordinates"
	FormatGradleTree  Format = "gradle-tree"
)

// Set holds group:artifact:version coordinates.
type Set struct {
	coords map[string]struct{}
}

// NewSet returns a set containing the given coordinates.
func NewSet(coords ...string) *Set {
	s := &Set{coords: make(map[string]struct{}, len(coords))}
	for _, c := range coords {
		s.Add(c)
	}
	return s
}

// Add inserts a coordinate. Surrounding whitespace is ignored.
func (s *Set) Add(coord string) {
	coord = strings.TrimSpace(coord)
	if coord == "" {
		return
	}
	s.coords[coord] = struct{}{}
}

// Contains reports whether the exact coordinate string is present.
func (s *Set) Contains(coord string) bool {
	if s == nil {
		return false
	}
	_, ok := s.coords[coord]
	return ok
}

// Len returns the number of coordinates in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.coords)
}

// Coordinates returns the set contents in sorted order.
func (s *Set) Coordinates() []string {
	out := make([]string, 0, s.Len())
	if s == nil {
		return out
	}
	for c := range s.coords {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// LoadFile reads an evidence file in the given format.
func LoadFile(path string, format Format) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open evidence file: %w", err)
	}
	defer f.Close()

	var set *Set
	switch format {
	case FormatCoordinates, "":
		set, err = ParseCoordinates(f)
	case FormatGradleTree:
		set, err = ParseGradleTree(f)
	default:
		return nil, fmt.Errorf("unknown evidence format %q (must be coordinates or gradle-tree)", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse evidence file %s: %w", path, err)
	}

	if set.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyEvidence)
	}

	return set, nil
}

// splitCoordinate returns the segments of a coordinate if it has exactly
// three non-empty parts.
func splitCoordinate(s string) ([]string, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, false
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, false
		}
	}
	return parts, true
}
