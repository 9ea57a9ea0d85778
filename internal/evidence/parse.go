package evidence

import (
	"bufio"
	"io"
	"strings"
)

// ParseCoordinates reads one group:artifact:version coordinate per line.
// Blank lines and lines starting with "#" are skipped, as are entries that do
// not have exactly three non-empty segments.
func ParseCoordinates(r io.Reader) (*Set, error) {
	set := NewSet()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if _, ok := splitCoordinate(line); !ok {
			continue
		}

		set.Add(line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return set, nil
}

// treeSuffixes are the annotations Gradle appends to dependency tree nodes.
var treeSuffixes = []string{" (*)", " (c)", " (n)"}

// ParseGradleTree parses the output of `gradle dependencies`.
//
// Example input:
//
//	runtimeClasspath - Runtime classpath of source set 'main'.
//	+--- com.google.guava:guava:33.0.0-jre
//	|    \--- com.google.code.findbugs:jsr305:3.0.2 -> 3.0.3 (*)
//	+--- androidx.core:core-ktx -> 1.12.0
//	\--- project :core
//
// A node "g:a:v -> w" contributes both the requested coordinate g:a:v and the
// selected coordinate g:a:w. Project nodes and failed resolutions are skipped.
func ParseGradleTree(r io.Reader) (*Set, error) {
	set := NewSet()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		node, ok := treeNode(scanner.Text())
		if !ok {
			continue
		}

		for _, coord := range nodeCoordinates(node) {
			set.Add(coord)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return set, nil
}

// treeNode returns the text after a "+--- " or "\--- " branch marker.
func treeNode(line string) (string, bool) {
	idx := strings.Index(line, "+--- ")
	if idx < 0 {
		idx = strings.Index(line, `\--- `)
	}
	if idx < 0 {
		return "", false
	}

	node := strings.TrimSpace(line[idx+5:])
	for _, suffix := range treeSuffixes {
		node = strings.TrimSuffix(node, suffix)
	}

	if node == "" || strings.HasPrefix(node, "project ") || strings.HasSuffix(node, " FAILED") {
		return "", false
	}

	return node, true
}

// nodeCoordinates expands one tree node into the coordinates it represents.
func nodeCoordinates(node string) []string {
	requested, selected, hasSelection := strings.Cut(node, " -> ")
	requested = strings.TrimSpace(requested)
	selected = strings.TrimSpace(selected)

	parts := strings.Split(requested, ":")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil
	}
	module := parts[0] + ":" + parts[1]

	var coords []string
	if len(parts) == 3 {
		if version := requestedVersion(parts[2]); version != "" {
			coords = append(coords, module+":"+version)
		}
	}
	if hasSelection && selected != "" {
		coords = append(coords, module+":"+selected)
	}

	return coords
}

// requestedVersion unwraps rich version constraints such as
// "{strictly 1.9.22}".
func requestedVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "{") {
		return v
	}

	v = strings.Trim(v, "{}")
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
