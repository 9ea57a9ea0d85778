package analyzer

import (
	"fmt"
	"sort"

	"github.com/blackwell-systems/depaudit/internal/manifest"
)

// Summary aggregates a set of classification results.
type Summary struct {
	Total         int
	Flagged       int
	FlaggedSizeMB float64
	ByCategory    map[UsageCategory]int

	// Candidates are the flagged results, largest estimated size first.
	Candidates []ClassificationResult
}

// Summarize totals results by category and collects removal candidates
// sorted by estimated size (largest first), then by line.
func Summarize(results []ClassificationResult) Summary {
	sum := Summary{
		Total:      len(results),
		ByCategory: make(map[UsageCategory]int, len(Categories)),
		Candidates: []ClassificationResult{},
	}

	for _, r := range results {
		sum.ByCategory[r.UsageCategory]++
		if r.IsFlaggedForRemoval {
			sum.Flagged++
			sum.FlaggedSizeMB += r.EstimatedSizeMB
			sum.Candidates = append(sum.Candidates, r)
		}
	}

	sort.SliceStable(sum.Candidates, func(i, j int) bool {
		a, b := sum.Candidates[i], sum.Candidates[j]
		if a.EstimatedSizeMB != b.EstimatedSizeMB {
			return a.EstimatedSizeMB > b.EstimatedSizeMB
		}
		return a.LineNumber < b.LineNumber
	})

	return sum
}

// RemovalWarnings lists reasons to double-check flagged declarations before
// deleting them from the manifest.
func RemovalWarnings(results []ClassificationResult) []string {
	var warnings []string

	lines := make(map[string][]int)
	for _, r := range results {
		lines[r.Module()] = append(lines[r.Module()], r.LineNumber)
	}

	for _, r := range results {
		if !r.IsFlaggedForRemoval {
			continue
		}

		if r.ConfigKind == manifest.KindAPI {
			warnings = append(warnings,
				fmt.Sprintf("%s (line %d): declared with api, consumers of this module may depend on it",
					r.Module(), r.LineNumber))
		}

		if r.HasVariableVersion() {
			warnings = append(warnings,
				fmt.Sprintf("%s (line %d): version %s is a variable, check other uses before removing",
					r.Module(), r.LineNumber, r.Version))
		}

		if others := distinctOtherLines(lines[r.Module()], r.LineNumber); len(others) > 0 {
			warnings = append(warnings,
				fmt.Sprintf("%s (line %d): also declared on line(s) %v",
					r.Module(), r.LineNumber, others))
		}
	}

	return warnings
}

// distinctOtherLines returns the unique entries of lines other than self.
func distinctOtherLines(lines []int, self int) []int {
	var out []int
	seen := map[int]bool{self: true}
	for _, l := range lines {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

// FlagDiff lists flag changes between two audits of the same manifest,
// keyed by coordinate.
type FlagDiff struct {
	NewlyFlagged []ClassificationResult
	Cleared      []ClassificationResult
	Added        []ClassificationResult
	Removed      []ClassificationResult
}

// Empty reports whether nothing changed.
func (d FlagDiff) Empty() bool {
	return len(d.NewlyFlagged) == 0 && len(d.Cleared) == 0 &&
		len(d.Added) == 0 && len(d.Removed) == 0
}

// CompareFlags reports which coordinates became flagged, stopped being
// flagged, appeared or disappeared between prev and curr. A coordinate that
// is declared more than once is flagged if any of its declarations is.
func CompareFlags(prev, curr []ClassificationResult) FlagDiff {
	before := indexByCoordinate(prev)
	after := indexByCoordinate(curr)

	var d FlagDiff
	for _, r := range firstByCoordinate(curr) {
		old, ok := before[r.Coordinate()]
		switch {
		case !ok:
			d.Added = append(d.Added, r)
			if after[r.Coordinate()].IsFlaggedForRemoval {
				d.NewlyFlagged = append(d.NewlyFlagged, r)
			}
		case after[r.Coordinate()].IsFlaggedForRemoval && !old.IsFlaggedForRemoval:
			d.NewlyFlagged = append(d.NewlyFlagged, r)
		case !after[r.Coordinate()].IsFlaggedForRemoval && old.IsFlaggedForRemoval:
			d.Cleared = append(d.Cleared, r)
		}
	}
	for _, r := range firstByCoordinate(prev) {
		if _, ok := after[r.Coordinate()]; !ok {
			d.Removed = append(d.Removed, r)
		}
	}
	return d
}

// indexByCoordinate keeps the first result per coordinate, with the flag
// OR-ed across duplicates.
func indexByCoordinate(results []ClassificationResult) map[string]ClassificationResult {
	m := make(map[string]ClassificationResult, len(results))
	for _, r := range results {
		if prev, ok := m[r.Coordinate()]; ok {
			prev.IsFlaggedForRemoval = prev.IsFlaggedForRemoval || r.IsFlaggedForRemoval
			m[r.Coordinate()] = prev
			continue
		}
		m[r.Coordinate()] = r
	}
	return m
}

func firstByCoordinate(results []ClassificationResult) []ClassificationResult {
	seen := make(map[string]bool, len(results))
	var out []ClassificationResult
	for _, r := range results {
		if !seen[r.Coordinate()] {
			seen[r.Coordinate()] = true
			out = append(out, r)
		}
	}
	return out
}
