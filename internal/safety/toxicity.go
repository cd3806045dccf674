package safety

import (
	"context"
	"fmt"
	"strings"

	"github.com/wardenlabs/childguard/pkg/logging"
)

// Toxicity attributes requested from the comment-scoring service.
const (
	AttrToxicity       = "TOXICITY"
	AttrSevereToxicity = "SEVERE_TOXICITY"
	AttrIdentityAttack = "IDENTITY_ATTACK"
	AttrInsult         = "INSULT"
	AttrProfanity      = "PROFANITY"
	AttrThreat         = "THREAT"
)

var toxicityAttributes = []string{
	AttrToxicity,
	AttrSevereToxicity,
	AttrIdentityAttack,
	AttrInsult,
	AttrProfanity,
	AttrThreat,
}

// toxicityCategoryMap translates scoring attributes to concern categories.
var toxicityCategoryMap = map[string]Category{
	AttrToxicity:       CategoryHarassment,
	AttrSevereToxicity: CategoryHarassment,
	AttrIdentityAttack: CategoryHateSpeech,
	AttrInsult:         CategoryHarassment,
	AttrProfanity:      CategoryProfanity,
	AttrThreat:         CategoryViolence,
}

// toxicityThresholds is a {block, review} pair for one age band.
type toxicityThresholds struct {
	block  float64
	review float64
}

// ageThresholds tightens monotonically for younger bands. Values are policy
// configuration; the strictly-stricter-when-younger ordering is an invariant.
var ageThresholds = map[AgeGroup]toxicityThresholds{
	AgeGroupEarlyChildhood:  {block: 0.3, review: 0.15},
	AgeGroupMiddleChildhood: {block: 0.4, review: 0.25},
	AgeGroupLateChildhood:   {block: 0.5, review: 0.35},
	AgeGroupEarlyTeen:       {block: 0.6, review: 0.45},
	AgeGroupLateTeen:        {block: 0.7, review: 0.55},
}

// ToxicityScorer produces per-attribute toxicity probabilities in [0,1].
// The production implementation calls the remote comment-analysis service;
// the keyword scorer is the deterministic offline stand-in.
type ToxicityScorer interface {
	Score(ctx context.Context, text string) (map[string]float64, error)
}

// ToxicityClassifier is the toxic-language specialist layer. It delegates
// scoring to a ToxicityScorer and applies age-banded thresholds to the
// highest attribute score.
type ToxicityClassifier struct {
	failSafe
	scorer ToxicityScorer
	logger *logging.Logger
}

// ToxicityOption customizes a ToxicityClassifier.
type ToxicityOption func(*ToxicityClassifier)

// WithoutToxicityFailSafe makes classifier failures degrade to Allow instead
// of Block. Not recommended for child-facing traffic.
func WithoutToxicityFailSafe() ToxicityOption {
	return func(c *ToxicityClassifier) { c.failSafe.enabled = false }
}

// NewToxicityClassifier wraps a scorer with the threshold decision logic.
func NewToxicityClassifier(scorer ToxicityScorer, logger *logging.Logger, opts ...ToxicityOption) *ToxicityClassifier {
	if logger == nil {
		logger = logging.Default()
	}
	c := &ToxicityClassifier{
		failSafe: failSafe{enabled: true},
		scorer:   scorer,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ToxicityClassifier) Name() string { return "toxicity" }

func (c *ToxicityClassifier) Available() bool { return c.scorer != nil }

// Classify scores the text and maps the maximum attribute probability
// through the child's age-band thresholds.
func (c *ToxicityClassifier) Classify(ctx context.Context, text string, child ChildContext) (Verdict, error) {
	if c.scorer == nil {
		return c.failSafe.verdict(c.Name(), fmt.Errorf("toxicity scorer not configured")), nil
	}

	// The remote scorer is unreliable on very short strings.
	if len(strings.TrimSpace(text)) < 3 {
		return Verdict{
			Action:     ActionAllow,
			Reason:     "text too short for toxicity analysis",
			Severity:   SeverityNone,
			Categories: []Category{CategoryNone},
			Confidence: 0.5,
			Source:     c.Name(),
		}, nil
	}

	scores, err := c.scorer.Score(ctx, text)
	if err != nil {
		c.logger.Error("toxicity scoring failed", "error", err)
		return c.failSafe.verdict(c.Name(), err), nil
	}

	return c.decide(scores, child.AgeGroup), nil
}

// decide applies the age-banded thresholds to raw attribute scores. Shared
// verbatim between the remote scorer and the offline stand-in so both paths
// exercise identical policy.
func (c *ToxicityClassifier) decide(scores map[string]float64, band AgeGroup) Verdict {
	th, ok := ageThresholds[band]
	if !ok {
		th = ageThresholds[AgeGroupMiddleChildhood]
	}

	var maxScore float64
	var maxAttr string
	var categories []Category
	seen := make(map[Category]struct{})
	for _, attr := range toxicityAttributes {
		score, ok := scores[attr]
		if !ok {
			continue
		}
		if score > maxScore {
			maxScore = score
			maxAttr = attr
		}
		if score >= th.review {
			cat := toxicityCategoryMap[attr]
			if _, dup := seen[cat]; !dup {
				seen[cat] = struct{}{}
				categories = append(categories, cat)
			}
		}
	}

	var verdict Verdict
	switch {
	case maxScore >= th.block:
		severity := SeverityMedium
		if maxScore > 0.8 {
			severity = SeverityHigh
		}
		verdict = Verdict{
			Action:      ActionBlock,
			Reason:      fmt.Sprintf("high toxicity detected: %s (%.2f)", maxAttr, maxScore),
			Severity:    severity,
			Categories:  categories,
			ParentAlert: true,
		}
	case maxScore >= th.review:
		severity := SeverityLow
		if maxScore > 0.5 {
			severity = SeverityMedium
		}
		verdict = Verdict{
			Action:      ActionReview,
			Reason:      fmt.Sprintf("moderate toxicity detected: %s (%.2f)", maxAttr, maxScore),
			Severity:    severity,
			Categories:  categories,
			ParentAlert: maxScore > 0.5,
		}
	default:
		verdict = Verdict{
			Action:     ActionAllow,
			Reason:     "no significant toxicity detected",
			Severity:   SeverityNone,
			Categories: []Category{CategoryNone},
		}
	}

	// The scorer is treated as a reliable specialist.
	verdict.Confidence = 0.85
	verdict.Source = c.Name()
	verdict.RawScores = scores
	verdict.Metadata = map[string]any{"max_attribute": maxAttr, "max_score": maxScore}
	return verdict
}
