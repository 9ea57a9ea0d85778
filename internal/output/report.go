package output

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/depaudit/internal/analyzer"
)

// Finding is the machine-readable form of a ClassificationResult.
type Finding struct {
	Line           int     `json:"line" yaml:"line"`
	Group          string  `json:"group" yaml:"group"`
	Artifact       string  `json:"artifact" yaml:"artifact"`
	Version        string  `json:"version" yaml:"version"`
	ConfigKind     string  `json:"config_kind" yaml:"config_kind"`
	RawLine        string  `json:"raw_line,omitempty" yaml:"raw_line,omitempty"`
	Category       string  `json:"category" yaml:"category"`
	Confidence     int     `json:"confidence" yaml:"confidence"`
	EstimatedMB    float64 `json:"estimated_size_mb" yaml:"estimated_size_mb"`
	Flagged        bool    `json:"flagged_for_removal" yaml:"flagged_for_removal"`
	Recommendation string  `json:"recommendation" yaml:"recommendation"`
}

// ReportSummary mirrors analyzer.Summary with stable keys.
type ReportSummary struct {
	Total         int            `json:"total" yaml:"total"`
	Flagged       int            `json:"flagged" yaml:"flagged"`
	FlaggedSizeMB float64        `json:"flagged_size_mb" yaml:"flagged_size_mb"`
	ByCategory    map[string]int `json:"by_category" yaml:"by_category"`
}

// Report is the document written by the json and yaml formats.
type Report struct {
	Manifest string        `json:"manifest" yaml:"manifest"`
	RunID    string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Mode     string        `json:"mode" yaml:"mode"`
	Findings []Finding     `json:"findings" yaml:"findings"`
	Summary  ReportSummary `json:"summary" yaml:"summary"`
	Warnings []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewReport builds a Report. Mode is taken from the first result and
// defaults to heuristic for an empty manifest.
func NewReport(manifest, runID string, results []analyzer.ClassificationResult) Report {
	sum := analyzer.Summarize(results)

	rep := Report{
		Manifest: manifest,
		RunID:    runID,
		Mode:     string(analyzer.ModeHeuristic),
		Findings: make([]Finding, 0, len(results)),
		Summary: ReportSummary{
			Total:         sum.Total,
			Flagged:       sum.Flagged,
			FlaggedSizeMB: sum.FlaggedSizeMB,
			ByCategory:    make(map[string]int, len(analyzer.Categories)),
		},
		Warnings: analyzer.RemovalWarnings(results),
	}
	if len(results) > 0 {
		rep.Mode = string(results[0].Mode)
	}

	for _, c := range analyzer.Categories {
		rep.Summary.ByCategory[string(c)] = sum.ByCategory[c]
	}

	for _, r := range results {
		rep.Findings = append(rep.Findings, Finding{
			Line:           r.LineNumber,
			Group:          r.Group,
			Artifact:       r.Artifact,
			Version:        r.Version,
			ConfigKind:     string(r.ConfigKind),
			RawLine:        r.RawLine,
			Category:       string(r.UsageCategory),
			Confidence:     r.Confidence,
			EstimatedMB:    r.EstimatedSizeMB,
			Flagged:        r.IsFlaggedForRemoval,
			Recommendation: string(r.Recommendation),
		})
	}

	return rep
}

// WriteJSON writes reports as indented JSON: a single object for one
// report, an array otherwise.
func WriteJSON(w io.Writer, reports ...Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	var v any = reports
	if len(reports) == 1 {
		v = reports[0]
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json report: %w", err)
	}
	return nil
}

// WriteYAML writes one YAML document per report.
func WriteYAML(w io.Writer, reports ...Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, rep := range reports {
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("failed to encode yaml report: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush yaml report: %w", err)
	}
	return nil
}

// SARIF v2.1.0

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDLikelyUnused = "DEPAUDIT001"
	ruleIDLargeReview  = "DEPAUDIT002"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

// WriteSARIF writes flagged results, plus non-flagged results that evidence
// mode still marks as large, as a SARIF v2.1.0 document. Manifest paths are
// made relative to root when possible.
func WriteSARIF(w io.Writer, root, toolVersion string, reports ...Report) error {
	doc := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:    "depaudit",
				Version: toolVersion,
				Rules: []sarifRule{
					{
						ID:               ruleIDLikelyUnused,
						Name:             "LikelyUnusedDependency",
						ShortDescription: sarifMessage{Text: "Declared dependency is likely unused"},
						DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
					},
					{
						ID:               ruleIDLargeReview,
						Name:             "LargeDependency",
						ShortDescription: sarifMessage{Text: "Declared dependency is large, confirm it is needed"},
						DefaultConfig:    sarifRuleDefaultConfig{Level: "note"},
					},
				},
			}},
			Results: []sarifResult{},
		}},
	}

	for _, rep := range reports {
		uri := relativeURI(root, rep.Manifest)
		for _, f := range rep.Findings {
			result, ok := sarifFinding(f)
			if !ok {
				continue
			}
			result.Locations = []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: uri, URIBaseID: "%SRCROOT%"},
					Region:           &sarifRegion{StartLine: f.Line},
				},
			}}
			doc.Runs[0].Results = append(doc.Runs[0].Results, result)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode sarif report: %w", err)
	}
	return nil
}

func sarifFinding(f Finding) (sarifResult, bool) {
	coord := f.Group + ":" + f.Artifact + ":" + f.Version
	switch {
	case f.Flagged:
		level := "warning"
		if f.Recommendation == string(analyzer.RecommendHighImpact) {
			level = "error"
		}
		return sarifResult{
			RuleID: ruleIDLikelyUnused,
			Level:  level,
			Message: sarifMessage{Text: fmt.Sprintf("%s is likely unused (confidence %d%%, ~%.1f MB)",
				coord, f.Confidence, f.EstimatedMB)},
		}, true
	case f.Recommendation == string(analyzer.RecommendHighImpact),
		f.Recommendation == string(analyzer.RecommendReviewLarge):
		return sarifResult{
			RuleID:  ruleIDLargeReview,
			Level:   "note",
			Message: sarifMessage{Text: fmt.Sprintf("%s is large (~%.1f MB), confirm it is needed", coord, f.EstimatedMB)},
		}, true
	default:
		return sarifResult{}, false
	}
}

// relativeURI returns path relative to root with forward slashes, or the
// base name when it cannot be made relative.
func relativeURI(root, path string) string {
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil && !filepath.IsAbs(rel) && rel != ".." &&
			!startsWithParent(rel) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(path)
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
