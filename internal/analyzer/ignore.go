package analyzer

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/blackwell-systems/depaudit/internal/manifest"
)

// IgnoreList matches declarations the user has asked to exclude from
// reports. Patterns use ':' as a separator, so "*" stays within one
// coordinate segment and "**" spans segments. A pattern matches if it matches
// either group:artifact or group:artifact:version.
type IgnoreList struct {
	patterns []string
	globs    []glob.Glob
}

// NewIgnoreList compiles the given glob patterns.
func NewIgnoreList(patterns []string) (*IgnoreList, error) {
	l := &IgnoreList{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, ':')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		l.patterns = append(l.patterns, p)
		l.globs = append(l.globs, g)
	}
	return l, nil
}

// Match reports whether decl is ignored.
func (l *IgnoreList) Match(decl manifest.Declaration) bool {
	if l == nil {
		return false
	}
	module, coord := decl.Module(), decl.Coordinate()
	for _, g := range l.globs {
		if g.Match(module) || g.Match(coord) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (l *IgnoreList) Patterns() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.patterns...)
}

// Filter returns the results whose declarations are not ignored.
func (l *IgnoreList) Filter(results []ClassificationResult) []ClassificationResult {
	if l == nil || len(l.globs) == 0 {
		return results
	}
	out := make([]ClassificationResult, 0, len(results))
	for _, r := range results {
		if !l.Match(r.Declaration) {
			out = append(out, r)
		}
	}
	return out
}
