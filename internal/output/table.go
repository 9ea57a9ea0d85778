// Package output renders audit results for the terminal and for machines.
//
// This package includes:
//   - Table rendering for findings, category summaries, history runs and diffs
//   - JSON, YAML and SARIF report encoders
//   - A suggested-removal patch in unified diff form
//   - A progress bar for multi-manifest audits
//
// Tables use ASCII layout and ANSI color codes when stdout is a terminal.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/depaudit/internal/analyzer"
	"github.com/blackwell-systems/depaudit/internal/store"
)

// ANSI color codes for category display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderFindingsTable renders one row per classification result, in the
// order given.
func RenderFindingsTable(results []analyzer.ClassificationResult) string {
	if len(results) == 0 {
		return "No dependency declarations found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-44s %-20s %-14s %-5s %-8s %s\n",
		"Line", "Dependency", "Kind", "Category", "Conf", "Size", "Action"))
	sb.WriteString(strings.Repeat("─", 118))
	sb.WriteString("\n")

	for _, r := range results {
		// Pad before colorizing so escape codes do not break alignment.
		category := fmt.Sprintf("%-14s", formatCategory(r.UsageCategory, r.IsFlaggedForRemoval))
		sb.WriteString(fmt.Sprintf("%-5d %-44s %-20s %s %-5s %-8s %s\n",
			r.LineNumber,
			truncate(r.Coordinate(), 44),
			string(r.ConfigKind),
			colorize(categoryColor(r.UsageCategory), category),
			fmt.Sprintf("%d%%", r.Confidence),
			FormatSize(r.EstimatedSizeMB),
			r.Recommendation))
	}

	return sb.String()
}

// formatCategory marks flagged results with a warning sign.
func formatCategory(c analyzer.UsageCategory, flagged bool) string {
	if flagged {
		return "⚠ " + string(c)
	}
	return string(c)
}

// categoryColor returns the ANSI color code for a usage category.
func categoryColor(c analyzer.UsageCategory) string {
	switch c {
	case analyzer.CategoryEssential, analyzer.CategoryFramework:
		return colorGreen
	case analyzer.CategoryUnknown:
		return colorYellow
	case analyzer.CategoryLikelyUnused:
		return colorRed
	default:
		return colorGray
	}
}

// RenderCategorySummary renders a one-line category breakdown.
// Format: "ESSENTIAL: 2 · FRAMEWORK: 1 · TEST: 1 · LIKELY_UNUSED: 1 · UNKNOWN: 0"
func RenderCategorySummary(sum analyzer.Summary) string {
	parts := make([]string, 0, len(analyzer.Categories))
	for _, c := range analyzer.Categories {
		parts = append(parts, fmt.Sprintf("%s: %d",
			colorize(categoryColor(c), string(c)), sum.ByCategory[c]))
	}
	return strings.Join(parts, " · ")
}

// RenderSavingsFooter renders the estimated savings of removing every
// flagged declaration.
func RenderSavingsFooter(sum analyzer.Summary) string {
	if sum.Flagged == 0 {
		return "No dependencies flagged for removal."
	}
	noun := "dependencies"
	if sum.Total == 1 {
		noun = "dependency"
	}
	return fmt.Sprintf("Flagged: %d of %d %s · estimated savings %s",
		sum.Flagged, sum.Total, noun, FormatSize(sum.FlaggedSizeMB))
}

// RenderExplanation renders the decision trail for one declaration.
func RenderExplanation(exp analyzer.Explanation) string {
	r := exp.Result
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Dependency: %s\n", r.Coordinate()))
	sb.WriteString(fmt.Sprintf("Line:       %d  %s\n", r.LineNumber, r.RawLine))
	sb.WriteString(fmt.Sprintf("Kind:       %s\n", r.ConfigKind))
	sb.WriteString(fmt.Sprintf("Mode:       %s\n", r.Mode))
	sb.WriteString(fmt.Sprintf("Category:   %s (confidence %d%%)\n",
		colorize(categoryColor(r.UsageCategory), string(r.UsageCategory)), r.Confidence))

	sb.WriteString("\nDecision:\n")
	sb.WriteString(fmt.Sprintf("  Rule:       %s\n", describeRule(exp.Rule, exp.Fragment)))
	if exp.Rule != exp.Heuristic {
		sb.WriteString(fmt.Sprintf("  Heuristic:  %s\n", describeRule(exp.Heuristic, exp.Fragment)))
	}
	if r.Mode == analyzer.ModeEvidence {
		if exp.SizeFragment != "" {
			sb.WriteString(fmt.Sprintf("  Size:       %s (matched %q)\n", FormatSize(r.EstimatedSizeMB), exp.SizeFragment))
		} else {
			sb.WriteString(fmt.Sprintf("  Size:       %s (default estimate)\n", FormatSize(r.EstimatedSizeMB)))
		}
	} else {
		sb.WriteString(fmt.Sprintf("  Size:       %s (category estimate)\n", FormatSize(r.EstimatedSizeMB)))
	}

	sb.WriteString("\nRecommendation: " + r.Advice() + "\n")
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	return sb.String()
}

func describeRule(rule analyzer.Rule, fragment string) string {
	switch rule {
	case analyzer.RuleEssential:
		return fmt.Sprintf("essential family (matched %q)", fragment)
	case analyzer.RuleTestScope:
		return "declared with a test configuration"
	case analyzer.RuleLargeUtility:
		return fmt.Sprintf("large utility family (matched %q)", fragment)
	case analyzer.RuleFramework:
		return fmt.Sprintf("framework family (matched %q)", fragment)
	case analyzer.RuleEvidenceAbsent:
		return "not in the resolved dependency evidence"
	case analyzer.RuleEvidencePresent:
		return "present in the resolved dependency evidence"
	default:
		return "no family matched"
	}
}

// RenderRunTable renders recorded audit runs, in the order given.
func RenderRunTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No audit runs recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-9s %-15s %-10s %-6s %-8s %-9s %s\n",
		"Run", "When", "Mode", "Decls", "Flagged", "Savings", "Manifest"))
	sb.WriteString(strings.Repeat("─", 96))
	sb.WriteString("\n")

	for _, run := range runs {
		sb.WriteString(fmt.Sprintf("%-9s %-15s %-10s %-6d %-8d %-9s %s\n",
			run.ShortID(),
			formatRelativeTime(run.CreatedAt),
			run.Mode,
			run.Declarations,
			run.Flagged,
			FormatSize(run.FlaggedSizeMB),
			run.ManifestPath))
	}

	return sb.String()
}

// RenderFlagDiff renders the changes between two runs.
func RenderFlagDiff(prev, curr *store.Run, d analyzer.FlagDiff) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Comparing %s (%s) → %s (%s)\n\n",
		prev.ShortID(), formatRelativeTime(prev.CreatedAt),
		curr.ShortID(), formatRelativeTime(curr.CreatedAt)))

	if d.Empty() {
		sb.WriteString("No changes.\n")
		return sb.String()
	}

	section := func(title, marker, color string, results []analyzer.ClassificationResult) {
		if len(results) == 0 {
			return
		}
		sb.WriteString(title + ":\n")
		for _, r := range results {
			sb.WriteString(fmt.Sprintf("  %s %s (line %d)\n",
				colorize(color, marker), r.Coordinate(), r.LineNumber))
		}
	}

	section("Newly flagged", "+", colorRed, d.NewlyFlagged)
	section("No longer flagged", "-", colorGreen, d.Cleared)
	section("Added declarations", "+", colorGray, d.Added)
	section("Removed declarations", "-", colorGray, d.Removed)

	return sb.String()
}

// FormatSize renders a size estimate given in megabytes.
func FormatSize(mb float64) string {
	if mb <= 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(mb * 1e6))
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
