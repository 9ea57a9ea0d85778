// Package manifest extracts dependency declarations from Gradle build scripts.
//
// Parsing is line oriented and never fails: lines that do not look like a
// call-style dependency declaration (including named-argument forms and
// unterminated string literals) are skipped. Each Declaration keeps the
// 1-based line it was found on so callers can point at the exact source.
package manifest

import (
	"bufio"
	"io"
	"regexp"
	"sort"
	"strings"
)

// coordinateLiteral matches a quoted "group:artifact:version" literal with
// optional surrounding parentheses. Single and double quotes are accepted.
const coordinateLiteral = `\s*\(?\s*["']([^:"'\s]+):([^:"'\s]+):([^"'\s]+)["']\s*\)?`

// patterns are evaluated in this order for every line. Group 1 of every
// pattern is the keyword as written; groups 2 to 4 are the coordinate.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(implementation)` + coordinateLiteral),
	regexp.MustCompile(`\b(api)` + coordinateLiteral),
	regexp.MustCompile(`\b(testImplementation|androidTestImplementation)` + coordinateLiteral),
	regexp.MustCompile(`\b(debugImplementation)` + coordinateLiteral),
	regexp.MustCompile(`\b(kapt|ksp|annotationProcessor)` + coordinateLiteral),
}

// kindMarkers drives DetectKind. Order is precedence: the first marker found
// wins, and anything unmatched is an implementation dependency.
var kindMarkers = []struct {
	kind    ConfigKind
	markers []string
}{
	{KindTest, []string{"test"}},
	{KindDebug, []string{"debug"}},
	{KindAnnotationProcessor, []string{"kapt", "ksp", "annotationprocessor"}},
	{KindAPI, []string{"api"}},
}

// DetectKind classifies a manifest line by case-insensitive substring tests.
// The whole line is inspected, coordinate included, so a line holding both a
// test and an api marker resolves to KindTest.
func DetectKind(text string) ConfigKind {
	lower := strings.ToLower(text)
	for _, km := range kindMarkers {
		for _, m := range km.markers {
			if strings.Contains(lower, m) {
				return km.kind
			}
		}
	}
	return KindImplementation
}

// Parse scans manifest lines and returns every recognized declaration in
// ascending line order. Every pattern is tried on every line, commented-out
// lines included. A line matched by more than one pattern yields one
// Declaration per match; no deduplication is performed.
func Parse(lines []string) []Declaration {
	var decls []Declaration

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		for _, re := range patterns {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				decls = append(decls, Declaration{
					Group:      m[2],
					Artifact:   m[3],
					Version:    m[4],
					LineNumber: i + 1,
					RawLine:    trimmed,
					ConfigKind: DetectKind(trimmed),
				})
			}
		}
	}

	sort.SliceStable(decls, func(i, j int) bool {
		return decls[i].LineNumber < decls[j].LineNumber
	})

	return decls
}

// ParseText splits text on newlines and parses the result.
func ParseText(text string) []Declaration {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return Parse(lines)
}

// ReadLines reads all lines from r. Line terminators are stripped.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}
