// Package analyzer classifies declared dependencies by likely usage.
//
// Two strategies are supported. Heuristic mode, the default, runs a fixed
// rule cascade over artifact name families and the configuration kind.
// Evidence mode is used when the caller supplies the set of coordinates the
// build actually resolved: anything declared but not resolved is flagged,
// and the suggested action follows from an estimated artifact size.
//
// Both strategies are estimates. Nothing here inspects bytecode, imports or
// real artifact metadata. Classification is pure: the same declaration and
// evidence always produce the same result, and no input can make it fail.
package analyzer

import (
	"strings"

	"github.com/blackwell-systems/depaudit/internal/evidence"
	"github.com/blackwell-systems/depaudit/internal/manifest"
)

// verdict is the outcome of one heuristic cascade branch.
type verdict struct {
	category   UsageCategory
	confidence int
	sizeMB     float64
}

// Heuristic cascade outcomes. Consumers depend on these exact values.
var (
	essentialVerdict    = verdict{CategoryEssential, 100, 0.1}
	testVerdict         = verdict{CategoryTest, 90, 0.1}
	largeUtilityVerdict = verdict{CategoryLikelyUnused, 75, 4.5}
	frameworkVerdict    = verdict{CategoryFramework, 85, 2.5}
	defaultVerdict      = verdict{CategoryUnknown, 50, 1.5}
)

// Evidence-mode thresholds and confidences.
const (
	HighImpactThresholdMB  = 5.0
	ReviewLargeThresholdMB = 2.0

	absentConfidence = 95
)

// Classifier holds the immutable family tables used for classification.
type Classifier struct {
	essential    []string
	largeUtility []string
	framework    []string
	sizes        []SizeEntry
}

// Option customizes a Classifier at construction time.
type Option func(*Classifier)

// WithEssential adds fragments to the essential family.
func WithEssential(fragments ...string) Option {
	return func(c *Classifier) {
		c.essential = append(c.essential, normalizeFragments(fragments)...)
	}
}

// WithLargeUtility adds fragments to the large-utility family.
func WithLargeUtility(fragments ...string) Option {
	return func(c *Classifier) {
		c.largeUtility = append(c.largeUtility, normalizeFragments(fragments)...)
	}
}

// WithFramework adds fragments to the framework family.
func WithFramework(fragments ...string) Option {
	return func(c *Classifier) {
		c.framework = append(c.framework, normalizeFragments(fragments)...)
	}
}

// WithSizes adds size table entries. They are consulted before the built-in
// table, so they can override a default estimate.
func WithSizes(sizes map[string]float64) Option {
	return func(c *Classifier) {
		c.sizes = append(sizeEntries(sizes), c.sizes...)
	}
}

// New creates a Classifier with the built-in tables plus any options.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		essential:    append([]string(nil), essentialFragments...),
		largeUtility: append([]string(nil), largeUtilityFragments...),
		framework:    append([]string(nil), frameworkFragments...),
		sizes:        append([]SizeEntry(nil), defaultSizes...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Families returns a copy of the tables in use.
func (c *Classifier) Families() FamilyTables {
	return FamilyTables{
		Essential:    append([]string(nil), c.essential...),
		LargeUtility: append([]string(nil), c.largeUtility...),
		Framework:    append([]string(nil), c.framework...),
		Sizes:        append([]SizeEntry(nil), c.sizes...),
	}
}

// Classify scores one declaration. A nil evidence set selects heuristic mode.
func (c *Classifier) Classify(decl manifest.Declaration, ev *evidence.Set) ClassificationResult {
	return c.Explain(decl, ev).Result
}

// ClassifyAll classifies each declaration, preserving order one-to-one.
func (c *Classifier) ClassifyAll(decls []manifest.Declaration, ev *evidence.Set) []ClassificationResult {
	results := make([]ClassificationResult, len(decls))
	for i, d := range decls {
		results[i] = c.Classify(d, ev)
	}
	return results
}

// Explain classifies a declaration and reports which rule decided it.
func (c *Classifier) Explain(decl manifest.Declaration, ev *evidence.Set) Explanation {
	rule, fragment, v := c.cascade(decl)

	if ev == nil {
		return Explanation{
			Result:    heuristicResult(decl, v),
			Rule:      rule,
			Fragment:  fragment,
			Heuristic: rule,
		}
	}

	return c.explainWithEvidence(decl, ev, rule, fragment, v)
}

// cascade evaluates the heuristic rules top to bottom; the first match wins.
// The essential family is matched against group:artifact, the large-utility
// and framework families against the artifact name only.
func (c *Classifier) cascade(decl manifest.Declaration) (Rule, string, verdict) {
	module := strings.ToLower(decl.Module())
	artifact := strings.ToLower(decl.Artifact)

	if f, ok := matchFragment(c.essential, module); ok {
		return RuleEssential, f, essentialVerdict
	}
	if decl.ConfigKind == manifest.KindTest {
		return RuleTestScope, "", testVerdict
	}
	if f, ok := matchFragment(c.largeUtility, artifact); ok {
		return RuleLargeUtility, f, largeUtilityVerdict
	}
	if f, ok := matchFragment(c.framework, artifact); ok {
		return RuleFramework, f, frameworkVerdict
	}
	return RuleDefault, "", defaultVerdict
}

func heuristicResult(decl manifest.Declaration, v verdict) ClassificationResult {
	res := ClassificationResult{
		Declaration:         decl,
		UsageCategory:       v.category,
		Confidence:          v.confidence,
		EstimatedSizeMB:     v.sizeMB,
		IsFlaggedForRemoval: v.category == CategoryLikelyUnused,
		Mode:                ModeHeuristic,
	}

	switch v.category {
	case CategoryLikelyUnused:
		res.Recommendation = RecommendRemoveCandidate
	case CategoryTest:
		res.Recommendation = RecommendTestOnly
	default:
		res.Recommendation = RecommendKeep
	}

	return res
}

func (c *Classifier) explainWithEvidence(decl manifest.Declaration, ev *evidence.Set, heuristic Rule, fragment string, v verdict) Explanation {
	size, sizeFragment := c.EstimateSize(decl)

	res := ClassificationResult{
		Declaration:         decl,
		EstimatedSizeMB:     size,
		IsFlaggedForRemoval: !ev.Contains(decl.Coordinate()),
		Mode:                ModeEvidence,
		Recommendation:      sizeRecommendation(size, decl.ConfigKind),
	}

	exp := Explanation{
		SizeFragment: sizeFragment,
		Heuristic:    heuristic,
		Fragment:     fragment,
	}

	if res.IsFlaggedForRemoval {
		res.UsageCategory = CategoryLikelyUnused
		res.Confidence = absentConfidence
		exp.Rule = RuleEvidenceAbsent
	} else {
		// Resolved evidence outranks the static guess, so a present
		// dependency is never reported as likely unused.
		if v.category == CategoryLikelyUnused {
			v = defaultVerdict
		}
		res.UsageCategory = v.category
		res.Confidence = v.confidence
		exp.Rule = RuleEvidencePresent
	}

	exp.Result = res
	return exp
}

// EstimateSize looks up the artifact in the size table, returning the
// estimate and the fragment that matched. Unknown artifacts get
// DefaultSizeMB and an empty fragment.
func (c *Classifier) EstimateSize(decl manifest.Declaration) (float64, string) {
	haystack := strings.ToLower(decl.Module())
	for _, e := range c.sizes {
		if strings.Contains(haystack, e.Fragment) {
			return e.SizeMB, e.Fragment
		}
	}
	return DefaultSizeMB, ""
}

// sizeRecommendation applies the evidence-mode threshold cascade.
func sizeRecommendation(sizeMB float64, kind manifest.ConfigKind) Recommendation {
	switch {
	case sizeMB > HighImpactThresholdMB:
		return RecommendHighImpact
	case sizeMB > ReviewLargeThresholdMB:
		return RecommendReviewLarge
	case kind == manifest.KindTest:
		return RecommendTestOnly
	default:
		return RecommendKeep
	}
}
