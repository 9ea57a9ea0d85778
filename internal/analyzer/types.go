package analyzer

import (
	"fmt"

	"github.com/blackwell-systems/depaudit/internal/manifest"
)

// UsageCategory is the classifier's verdict on how essential a dependency is.
type UsageCategory string

const (
	CategoryEssential    UsageCategory = "ESSENTIAL"
	CategoryFramework    UsageCategory = "FRAMEWORK"
	CategoryTest         UsageCategory = "TEST"
	CategoryLikelyUnused UsageCategory = "LIKELY_UNUSED"
	CategoryUnknown      UsageCategory = "UNKNOWN"
)

// Categories lists every usage category in report order.
var Categories = []UsageCategory{
	CategoryEssential,
	CategoryFramework,
	CategoryTest,
	CategoryLikelyUnused,
	CategoryUnknown,
}

// Mode records which strategy produced a result.
type Mode string

const (
	ModeHeuristic Mode = "heuristic"
	ModeEvidence  Mode = "evidence"
)

// Recommendation is the action suggested for a declaration.
type Recommendation string

const (
	RecommendKeep            Recommendation = "keep"
	RecommendRemoveCandidate Recommendation = "remove-candidate"
	RecommendTestOnly        Recommendation = "test-only"
	RecommendHighImpact      Recommendation = "high-impact-removal"
	RecommendReviewLarge     Recommendation = "review-large"
)

// Rule names the branch of the classification cascade that decided a result.
type Rule string

const (
	RuleEssential       Rule = "essential-family"
	RuleTestScope       Rule = "test-scope"
	RuleLargeUtility    Rule = "large-utility-family"
	RuleFramework       Rule = "framework-family"
	RuleDefault         Rule = "default"
	RuleEvidenceAbsent  Rule = "absent-from-evidence"
	RuleEvidencePresent Rule = "present-in-evidence"
)

// ClassificationResult is one scored recommendation for a Declaration.
type ClassificationResult struct {
	manifest.Declaration
	UsageCategory       UsageCategory
	Confidence          int     // 0-100
	EstimatedSizeMB     float64 // heuristic estimate, never measured
	IsFlaggedForRemoval bool
	Mode                Mode
	Recommendation      Recommendation
}

// Advice renders the recommendation as a short human-readable sentence.
func (r ClassificationResult) Advice() string {
	switch r.Recommendation {
	case RecommendHighImpact:
		if r.IsFlaggedForRemoval {
			return fmt.Sprintf("high impact: remove to save ~%.1f MB", r.EstimatedSizeMB)
		}
		return fmt.Sprintf("high impact: ~%.1f MB, confirm it is needed", r.EstimatedSizeMB)
	case RecommendReviewLarge:
		return fmt.Sprintf("review: large dependency (~%.1f MB)", r.EstimatedSizeMB)
	case RecommendRemoveCandidate:
		return fmt.Sprintf("likely unused, removing may save ~%.1f MB", r.EstimatedSizeMB)
	case RecommendTestOnly:
		return "test-only dependency, not shipped"
	default:
		return "keep"
	}
}

// Explanation describes how a result was reached.
type Explanation struct {
	Result ClassificationResult
	Rule   Rule

	// Fragment is the family name fragment that matched, if any.
	Fragment string

	// SizeFragment is the size table entry used in evidence mode.
	SizeFragment string

	// Heuristic is the cascade branch that would apply without evidence.
	// It equals Rule in heuristic mode.
	Heuristic Rule
}
