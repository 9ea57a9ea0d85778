package analyzer

import (
	"sort"
	"strings"
)

// Family tables drive the heuristic cascade. Fragments are matched
// case-insensitively; essential fragments against "group:artifact", the
// others against the artifact name alone.
var (
	// essentialFragments identify standard-library and core UI-framework
	// artifacts that every module of a Kotlin/Android project relies on.
	essentialFragments = []string{
		"kotlin-stdlib",
		"kotlin-reflect",
		"androidx.core",
		"core-ktx",
		"appcompat",
	}

	// largeUtilityFragments identify broad utility libraries that are often
	// pulled in for a single helper.
	largeUtilityFragments = []string{
		"guava",
		"commons-lang",
		"commons-collections",
		"commons-io",
		"commons-math",
	}

	// frameworkFragments identify application frameworks: networking clients,
	// dependency injection, persistence and concurrency helpers.
	frameworkFragments = []string{
		"retrofit",
		"okhttp",
		"dagger",
		"hilt",
		"room",
		"coroutines",
		"koin",
	}
)

// SizeEntry maps an artifact name fragment to a characteristic size.
type SizeEntry struct {
	Fragment string
	SizeMB   float64
}

// defaultSizes is consulted top to bottom in evidence mode; more specific
// fragments come before the families that contain them.
var defaultSizes = []SizeEntry{
	{"aws-java-sdk", 12.0},
	{"mlkit", 9.0},
	{"play-services", 8.0},
	{"firebase", 6.0},
	{"kotlin-reflect", 3.1},
	{"guava", 2.7},
	{"commons-collections", 0.7},
	{"commons-lang3", 0.6},
	{"commons-io", 0.5},
	{"jackson-databind", 1.6},
	{"kotlin-stdlib", 1.6},
	{"coroutines", 1.5},
	{"room", 1.2},
	{"appcompat", 1.1},
	{"okhttp", 0.8},
	{"core-ktx", 0.4},
	{"dagger", 0.3},
	{"retrofit", 0.1},
	{"junit", 0.4},
}

// DefaultSizeMB is the evidence-mode size for artifacts absent from the
// size table.
const DefaultSizeMB = 1.5

// FamilyTables is a read-only view of the tables a Classifier uses.
type FamilyTables struct {
	Essential    []string
	LargeUtility []string
	Framework    []string
	Sizes        []SizeEntry
}

// matchFragment returns the first fragment contained in haystack.
// haystack must already be lower case.
func matchFragment(fragments []string, haystack string) (string, bool) {
	for _, f := range fragments {
		if strings.Contains(haystack, strings.ToLower(f)) {
			return f, true
		}
	}
	return "", false
}

// normalizeFragments lower-cases, trims and drops empty fragments.
func normalizeFragments(in []string) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// sizeEntries converts a fragment->MB map into a deterministic slice,
// longest fragment first so the most specific entry wins.
func sizeEntries(sizes map[string]float64) []SizeEntry {
	entries := make([]SizeEntry, 0, len(sizes))
	for f, mb := range sizes {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || mb < 0 {
			continue
		}
		entries = append(entries, SizeEntry{Fragment: f, SizeMB: mb})
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].Fragment) != len(entries[j].Fragment) {
			return len(entries[i].Fragment) > len(entries[j].Fragment)
		}
		return entries[i].Fragment < entries[j].Fragment
	})
	return entries
}
