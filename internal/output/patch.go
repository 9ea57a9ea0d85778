package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blackwell-systems/depaudit/internal/analyzer"
)

// RenderPatch renders a zero-context unified diff that deletes the line of
// every flagged declaration. lines is the manifest content the results were
// parsed from. The manifest itself is never touched; callers print the patch
// for review or `git apply`.
func RenderPatch(path string, lines []string, results []analyzer.ClassificationResult) string {
	seen := make(map[int]bool)
	var targets []int
	for _, r := range results {
		if !r.IsFlaggedForRemoval || seen[r.LineNumber] {
			continue
		}
		if r.LineNumber < 1 || r.LineNumber > len(lines) {
			continue
		}
		seen[r.LineNumber] = true
		targets = append(targets, r.LineNumber)
	}
	if len(targets) == 0 {
		return ""
	}
	sort.Ints(targets)

	path = strings.TrimPrefix(path, "/")

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("--- a/%s\n", path))
	sb.WriteString(fmt.Sprintf("+++ b/%s\n", path))

	for removed, line := range targets {
		sb.WriteString(fmt.Sprintf("@@ -%d +%d,0 @@\n", line, line-1-removed))
		sb.WriteString("-" + lines[line-1] + "\n")
	}

	return sb.String()
}
