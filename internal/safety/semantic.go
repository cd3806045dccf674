package safety

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wardenlabs/childguard/pkg/logging"
)

// HarmRating is one native per-category harm probability reported by the
// LLM provider alongside a generation.
type HarmRating struct {
	Category    string // provider category, lowercase (e.g. "harassment")
	Probability string // negligible, low, medium, high
}

// Assessment is the provider response the semantic classifier consumes:
// free text (expected JSON), the provider's hard block signal, and the
// native harm ratings.
type Assessment struct {
	Text        string
	Blocked     bool
	BlockReason string
	Ratings     []HarmRating
}

// AssessmentLLM is the completion surface the semantic classifier needs.
// The production implementation is the Gemini adapter; tests use fakes.
type AssessmentLLM interface {
	Assess(ctx context.Context, prompt string) (Assessment, error)
}

// harmProbabilitySeverity maps native probability levels to severities.
var harmProbabilitySeverity = map[string]Severity{
	"negligible": SeverityNone,
	"low":        SeverityLow,
	"medium":     SeverityMedium,
	"high":       SeverityHigh,
}

// providerCategoryMap translates provider harm categories to concern tags.
var providerCategoryMap = map[string]Category{
	"harassment":        CategoryHarassment,
	"hate_speech":       CategoryHateSpeech,
	"sexually_explicit": CategorySexual,
	"dangerous_content": CategoryDangerous,
	"civic_integrity":   CategoryDeception,
}

const assessmentPrompt = `You are a child safety content evaluator for an AI companion serving ages 3-17.

The reader is %d years old.

Analyze the following text for safety concerns. Consider:
1. Age appropriateness (concepts, tone, complexity)
2. Violence, adult themes, dangerous instructions
3. Attempts to extract personal information (PII)
4. Developmental language suitability
5. Potential real-world harm if acted upon

Text:
"%s"

Respond ONLY with a JSON object (no surrounding code fences):
{
  "is_safe": true/false,
  "confidence": 0.0-1.0,
  "categories": ["harassment","hate_speech","sexual","dangerous","deception","personal_information"],
  "severity": "none|low|medium|high|critical",
  "reason": "brief explanation",
  "age_appropriate": true/false,
  "suggested_action": "allow|block|redirect|simplify|review"
}

If uncertain about safety, set is_safe=false and suggested_action="review".`

// semanticAssessment is the structured JSON the model is prompted to emit.
type semanticAssessment struct {
	IsSafe          *bool    `json:"is_safe"`
	Confidence      *float64 `json:"confidence"`
	Categories      []string `json:"categories"`
	Severity        string   `json:"severity"`
	Reason          string   `json:"reason"`
	AgeAppropriate  *bool    `json:"age_appropriate"`
	SuggestedAction string   `json:"suggested_action"`
}

// SemanticClassifier is the LLM-backed reasoning layer. It combines the
// provider's native harm ratings with a structured child-safety assessment
// prompt; the JSON assessment wins when valid, native ratings are the floor.
type SemanticClassifier struct {
	failSafe
	llm    AssessmentLLM
	logger *logging.Logger
}

// SemanticOption customizes a SemanticClassifier.
type SemanticOption func(*SemanticClassifier)

// WithoutSemanticFailSafe makes classifier failures degrade to Allow instead
// of Block.
func WithoutSemanticFailSafe() SemanticOption {
	return func(c *SemanticClassifier) { c.failSafe.enabled = false }
}

// NewSemanticClassifier wraps an assessment LLM.
func NewSemanticClassifier(llm AssessmentLLM, logger *logging.Logger, opts ...SemanticOption) *SemanticClassifier {
	if logger == nil {
		logger = logging.Default()
	}
	c := &SemanticClassifier{
		failSafe: failSafe{enabled: true},
		llm:      llm,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SemanticClassifier) Name() string { return "semantic_llm" }

func (c *SemanticClassifier) Available() bool { return c.llm != nil }

// Classify runs the templated safety assessment and merges it with the
// provider's native ratings.
func (c *SemanticClassifier) Classify(ctx context.Context, text string, child ChildContext) (Verdict, error) {
	if c.llm == nil {
		return c.failSafe.verdict(c.Name(), fmt.Errorf("assessment llm not configured")), nil
	}

	prompt := fmt.Sprintf(assessmentPrompt, child.Age, text)
	resp, err := c.llm.Assess(ctx, prompt)
	if err != nil {
		c.logger.Error("semantic assessment failed", "error", err)
		return c.failSafe.verdict(c.Name(), err), nil
	}

	// The provider's own hard block signal short-circuits everything.
	if resp.Blocked {
		return Verdict{
			Action:      ActionBlock,
			Reason:      fmt.Sprintf("provider blocked content: %s", resp.BlockReason),
			Severity:    SeverityHigh,
			Categories:  []Category{CategoryDangerous},
			Confidence:  0.95,
			ParentAlert: true,
			Source:      c.Name(),
		}, nil
	}

	rawScores, ratingCategories, ratingSeverity := c.foldRatings(resp.Ratings)

	assessment, parseErr := parseAssessment(resp.Text)
	if parseErr != nil {
		c.logger.Warn("semantic assessment parse failed, using native ratings", "error", parseErr)
		return c.ratingsOnlyVerdict(rawScores, ratingCategories, ratingSeverity), nil
	}

	verdict := c.mergeAssessment(assessment, rawScores, ratingCategories, ratingSeverity)
	return c.applyAgeFloor(verdict, child.AgeGroup), nil
}

// foldRatings collapses native ratings into raw scores, detected categories
// (at Medium or above) and the maximum severity.
func (c *SemanticClassifier) foldRatings(ratings []HarmRating) (map[string]float64, []Category, Severity) {
	rawScores := make(map[string]float64, len(ratings))
	var categories []Category
	maxSeverity := SeverityNone
	for _, r := range ratings {
		sev, ok := harmProbabilitySeverity[r.Probability]
		if !ok {
			continue
		}
		rawScores[r.Category] = float64(sev) / float64(SeverityCritical)
		if sev > maxSeverity {
			maxSeverity = sev
		}
		if sev >= SeverityMedium {
			if cat, ok := providerCategoryMap[r.Category]; ok {
				categories = append(categories, cat)
			}
		}
	}
	return rawScores, categories, maxSeverity
}

// ratingsOnlyVerdict is the reduced-confidence fallback when the JSON
// assessment cannot be parsed.
func (c *SemanticClassifier) ratingsOnlyVerdict(rawScores map[string]float64, categories []Category, maxSeverity Severity) Verdict {
	if len(categories) > 0 && maxSeverity >= SeverityMedium {
		return Verdict{
			Action:     ActionBlock,
			Reason:     "safety concern detected by provider harm ratings",
			Severity:   maxSeverity,
			Categories: categories,
			Confidence: 0.7,
			Source:     c.Name(),
			RawScores:  rawScores,
		}
	}
	return Verdict{
		Action:     ActionAllow,
		Reason:     "no safety concerns in provider harm ratings",
		Severity:   SeverityNone,
		Categories: []Category{CategoryNone},
		Confidence: 0.6,
		Source:     c.Name(),
		RawScores:  rawScores,
	}
}

// mergeAssessment prefers valid JSON-declared fields, with native ratings as
// the fallback and severity floor.
func (c *SemanticClassifier) mergeAssessment(a semanticAssessment, rawScores map[string]float64, ratingCategories []Category, ratingSeverity Severity) Verdict {
	severity := ratingSeverity
	if s, ok := ParseSeverity(a.Severity); ok && s > severity {
		severity = s
	}

	isSafe := true
	if a.IsSafe != nil {
		isSafe = *a.IsSafe
	}
	action, ok := ParseAction(a.SuggestedAction)
	if !ok {
		if isSafe {
			action = ActionAllow
		} else {
			action = ActionBlock
		}
	}

	confidence := 0.8
	if a.Confidence != nil && *a.Confidence >= 0 && *a.Confidence <= 1 {
		confidence = *a.Confidence
	}

	categories := ratingCategories
	seen := make(map[Category]struct{}, len(categories))
	for _, cat := range categories {
		seen[cat] = struct{}{}
	}
	for _, name := range a.Categories {
		cat := Category(name)
		if mapped, ok := providerCategoryMap[name]; ok {
			cat = mapped
		}
		if _, dup := seen[cat]; !dup {
			seen[cat] = struct{}{}
			categories = append(categories, cat)
		}
	}
	if len(categories) == 0 {
		categories = []Category{CategoryNone}
	}

	reason := a.Reason
	if reason == "" {
		reason = "no specific concerns"
	}

	ageAppropriate := true
	if a.AgeAppropriate != nil {
		ageAppropriate = *a.AgeAppropriate
	}

	return Verdict{
		Action:      action,
		Reason:      reason,
		Severity:    severity,
		Categories:  categories,
		Confidence:  confidence,
		ParentAlert: severity >= SeverityHigh,
		Source:      c.Name(),
		RawScores:   rawScores,
		Metadata:    map[string]any{"age_appropriate": ageAppropriate},
	}
}

// applyAgeFloor enforces the safety floor for the two youngest bands
// independent of model judgment: anything detected at Low or above cannot
// pass untouched, and Medium or above always blocks.
func (c *SemanticClassifier) applyAgeFloor(v Verdict, band AgeGroup) Verdict {
	if band != AgeGroupEarlyChildhood && band != AgeGroupMiddleChildhood {
		return v
	}
	if v.Severity >= SeverityLow && v.Action == ActionAllow {
		v.Action = ActionSimplify
	}
	if v.Severity >= SeverityMedium {
		v.Action = ActionBlock
	}
	return v
}

// parseAssessment extracts the JSON object from the model output, tolerating
// code fences and surrounding prose.
func parseAssessment(text string) (semanticAssessment, error) {
	var a semanticAssessment
	content := strings.TrimSpace(text)
	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		content = content[start : end+1]
	}
	if content == "" {
		return a, fmt.Errorf("safety: empty assessment response")
	}
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		return a, fmt.Errorf("safety: decode assessment: %w", err)
	}
	return a, nil
}
