package safety

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// dangerRule flags a request for dangerous instructions. These rules are
// never overridable by a parent allow-list: they represent unconditional
// risk independent of topic preferences.
type dangerRule struct {
	re       *regexp.Regexp
	category Category
	severity Severity
}

var dangerRules = []dangerRule{
	{regexp.MustCompile(`(?i)how to (make|build|create|construct) (a )?(bomb|weapon|explosive|gun)`), CategoryDangerous, SeverityCritical},
	{regexp.MustCompile(`(?i)how to (hurt|harm|kill|attack|murder)`), CategoryViolence, SeverityCritical},
	{regexp.MustCompile(`(?i)how to (steal|hack|break into)`), CategoryDangerous, SeverityHigh},
	{regexp.MustCompile(`(?i)(credit card|password|social security) number`), CategoryPII, SeverityHigh},
}

// piiRule flags attempts to solicit personal information from the child.
// Also not overridable by the allow-list.
type piiRule struct {
	re       *regexp.Regexp
	severity Severity
}

var piiRules = []piiRule{
	{regexp.MustCompile(`(?i)(what is|tell me|give me) your (address|phone|school|password)`), SeverityHigh},
	{regexp.MustCompile(`(?i)where do you live`), SeverityMedium},
	{regexp.MustCompile(`(?i)what('s| is) your (real|full) name`), SeverityMedium},
	{regexp.MustCompile(`(?i)(send|share) (me )?(a )?photo of (yourself|you)`), SeverityHigh},
}

// blockedTerm is one topic keyword with its concern category and severity.
// Parents can allow-list individual terms; the block-list wins over the
// allow-list for the same term. Ordered so repeat evaluations of the same
// text always match the same term first.
type blockedTerm struct {
	term     string
	category Category
	severity Severity
}

var blockedTerms = []blockedTerm{
	{"weapon", CategoryViolence, SeverityHigh},
	{"bomb", CategoryDangerous, SeverityCritical},
	{"explosive", CategoryDangerous, SeverityCritical},
	{"gun", CategoryViolence, SeverityHigh},
	{"knife attack", CategoryViolence, SeverityCritical},
	{"drugs", CategoryDrugsAlcohol, SeverityHigh},
	{"alcohol", CategoryDrugsAlcohol, SeverityMedium},
	{"smoking", CategoryDrugsAlcohol, SeverityMedium},
	{"vaping", CategoryDrugsAlcohol, SeverityMedium},
	{"suicide", CategorySelfHarm, SeverityCritical},
	{"self-harm", CategorySelfHarm, SeverityCritical},
	{"eating disorder", CategorySelfHarm, SeverityHigh},
	{"pornography", CategorySexual, SeverityCritical},
	{"sexual", CategorySexual, SeverityHigh},
	{"nude", CategorySexual, SeverityHigh},
	{"gambling", CategoryGambling, SeverityMedium},
	{"betting", CategoryGambling, SeverityMedium},
	{"hacking", CategoryDangerous, SeverityMedium},
	{"malware", CategoryDangerous, SeverityHigh},
	{"virus", CategoryDangerous, SeverityMedium},
}

// safeRedirect pairs a keyword with a curated child-friendly alternative.
// When a match exists the verdict is Redirect instead of Block so the
// orchestrator can keep the conversation going.
type safeRedirect struct {
	keyword string
	reply   string
}

var safeRedirects = []safeRedirect{
	{"bomb", "I can't help with that because it's dangerous. But I can tell you how fireworks create bright colors!"},
	{"weapon", "I can't help with that. Would you like to learn about how knights protected castles instead?"},
	{"drugs", "That's not something I can help with. How about we learn about how doctors help people stay healthy?"},
	{"hacking", "I can't help with that. But I can teach you about how computers work to keep information safe!"},
}

const piiReply = "I keep my personal information private, and you should too! Is there something else I can help you with?"

// PatternClassifier is the first line of defense: deterministic regex and
// blocklist matching with no I/O. Cheap enough to run on every message
// before any network-backed layer.
type PatternClassifier struct {
	failSafe
}

// NewPatternClassifier creates the local pattern-matching classifier.
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{failSafe: failSafe{enabled: true}}
}

func (c *PatternClassifier) Name() string { return "pattern_blocklist" }

// Available always reports true; there are no external dependencies.
func (c *PatternClassifier) Available() bool { return true }

// Classify runs the rule sets in strict priority order: dangerous
// instructions, PII solicitation, the term blocklist, then the parent's
// custom block-list.
func (c *PatternClassifier) Classify(_ context.Context, text string, child ChildContext) (Verdict, error) {
	lower := strings.ToLower(text)

	for _, rule := range dangerRules {
		if rule.re.MatchString(text) {
			redirect := findRedirect(lower)
			action := ActionBlock
			if redirect != "" {
				action = ActionRedirect
			}
			return Verdict{
				Action:         action,
				Reason:         "dangerous instruction request detected",
				Severity:       rule.severity,
				Categories:     []Category{rule.category},
				Confidence:     0.95,
				SuggestedReply: redirect,
				ParentAlert:    true,
				Source:         c.Name(),
			}, nil
		}
	}

	for _, rule := range piiRules {
		if rule.re.MatchString(text) {
			return Verdict{
				Action:         ActionBlock,
				Reason:         "personal information request detected",
				Severity:       rule.severity,
				Categories:     []Category{CategoryPII},
				Confidence:     0.9,
				SuggestedReply: piiReply,
				ParentAlert:    rule.severity >= SeverityHigh,
				Source:         c.Name(),
			}, nil
		}
	}

	for _, info := range blockedTerms {
		if !strings.Contains(lower, info.term) {
			continue
		}
		// Parent allow-list can clear a generic term, unless the parent
		// also block-listed it.
		if child.TopicAllowed(info.term) {
			continue
		}
		redirect := findRedirect(lower)
		action := ActionBlock
		if redirect != "" {
			action = ActionRedirect
		}
		return Verdict{
			Action:         action,
			Reason:         fmt.Sprintf("blocked term detected: %s", info.term),
			Severity:       info.severity,
			Categories:     []Category{info.category},
			Confidence:     0.85,
			SuggestedReply: redirect,
			ParentAlert:    info.severity >= SeverityHigh,
			Source:         c.Name(),
		}, nil
	}

	for _, topic := range child.BlockedTopics {
		if topic == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(topic)) {
			return Verdict{
				Action:         ActionBlock,
				Reason:         fmt.Sprintf("parent-blocked topic: %s", topic),
				Severity:       SeverityLow,
				Categories:     []Category{CategoryAgeInappropriate},
				Confidence:     0.9,
				SuggestedReply: "I'm not able to talk about that. Let's explore something else!",
				Source:         c.Name(),
			}, nil
		}
	}

	// Only blocklist coverage was checked, not semantics, hence the lower
	// confidence on Allow.
	return Verdict{
		Action:     ActionAllow,
		Reason:     "no blocklist matches found",
		Severity:   SeverityNone,
		Categories: []Category{CategoryNone},
		Confidence: 0.7,
		Source:     c.Name(),
	}, nil
}

func findRedirect(lower string) string {
	for _, r := range safeRedirects {
		if strings.Contains(lower, r.keyword) {
			return r.reply
		}
	}
	return ""
}
