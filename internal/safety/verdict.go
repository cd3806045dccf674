// Package safety implements the multi-layer safety evaluation pipeline for
// the child companion: base verdict types, the classifier contract, three
// classifier implementations and the orchestrating evaluator.
package safety

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action is the outcome a safety decision can take. Actions are ordered by
// merge priority: when two layers disagree, the higher-priority action wins.
type Action int

const (
	ActionAllow Action = iota + 1
	ActionSimplify
	ActionWarnParent
	ActionRedirect
	ActionReview
	ActionBlock
)

var actionNames = map[Action]string{
	ActionAllow:      "allow",
	ActionSimplify:   "simplify",
	ActionWarnParent: "warn_parent",
	ActionRedirect:   "redirect",
	ActionReview:     "review",
	ActionBlock:      "block",
}

var actionValues = map[string]Action{
	"allow":       ActionAllow,
	"simplify":    ActionSimplify,
	"warn_parent": ActionWarnParent,
	"redirect":    ActionRedirect,
	"review":      ActionReview,
	"block":       ActionBlock,
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Priority returns the merge priority of the action. Higher wins.
func (a Action) Priority() int { return int(a) }

func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := actionValues[s]
	if !ok {
		return fmt.Errorf("safety: unknown action %q", s)
	}
	*a = v
	return nil
}

// ParseAction maps a lowercase action name to its Action. The second return
// reports whether the name was recognized.
func ParseAction(s string) (Action, bool) {
	a, ok := actionValues[s]
	return a, ok
}

// Severity grades how serious a safety concern is. Comparison is by rank,
// never by the underlying display name.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityNone:     "none",
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

var severityValues = map[string]Severity{
	"none":     SeverityNone,
	"low":      SeverityLow,
	"medium":   SeverityMedium,
	"high":     SeverityHigh,
	"critical": SeverityCritical,
}

func (s Severity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, ok := severityValues[name]
	if !ok {
		return fmt.Errorf("safety: unknown severity %q", name)
	}
	*s = v
	return nil
}

// ParseSeverity maps a lowercase severity name to its Severity.
func ParseSeverity(s string) (Severity, bool) {
	v, ok := severityValues[s]
	return v, ok
}

// Category tags the kind of concern a classifier detected.
type Category string

const (
	CategoryViolence         Category = "violence"
	CategorySexual           Category = "sexual"
	CategoryHateSpeech       Category = "hate_speech"
	CategoryHarassment       Category = "harassment"
	CategorySelfHarm         Category = "self_harm"
	CategoryDangerous        Category = "dangerous"
	CategoryDrugsAlcohol     Category = "drugs_alcohol"
	CategoryProfanity        Category = "profanity"
	CategoryPII              Category = "personal_information"
	CategoryDeception        Category = "deception"
	CategoryAgeInappropriate Category = "age_inappropriate"
	CategoryGambling         Category = "gambling"
	CategoryNone             Category = "none"
)

// Verdict is the structured output of a single classifier, or of the merged
// pipeline. Treat as immutable once constructed.
type Verdict struct {
	Action         Action             `json:"action"`
	Reason         string             `json:"reason"`
	Severity       Severity           `json:"severity"`
	Categories     []Category         `json:"categories,omitempty"`
	Confidence     float64            `json:"confidence"`
	SuggestedReply string             `json:"suggested_reply,omitempty"`
	ParentAlert    bool               `json:"parent_alert"`
	Source         string             `json:"source"`
	RawScores      map[string]float64 `json:"raw_scores,omitempty"`
	Metadata       map[string]any     `json:"metadata,omitempty"`
}

// Run captures one full pass through the evaluation pipeline.
type Run struct {
	Final          Verdict   `json:"final"`
	LayerResults   []Verdict `json:"layer_results"`
	LayersExecuted []string  `json:"layers_executed"`
	ReviewTicketID string    `json:"review_ticket_id,omitempty"`
	ElapsedMS      float64   `json:"elapsed_ms"`
	StartedAt      time.Time `json:"started_at"`
}

// Confidence is the recency-weighted average confidence across executed
// layers. Later layers carry more weight because they are the more
// specialized (and expensive) ones. Reported for observability only; the
// merge rule does not consume it.
func (r *Run) Confidence() float64 {
	if len(r.LayerResults) == 0 {
		return 0
	}
	var weighted, total float64
	for i, v := range r.LayerResults {
		w := 1.0 + 0.5*float64(i)
		weighted += v.Confidence * w
		total += w
	}
	return weighted / total
}

// Categories returns the deduplicated union of category tags across layers.
func (r *Run) Categories() []Category {
	seen := make(map[Category]struct{})
	var out []Category
	for _, v := range r.LayerResults {
		for _, c := range v.Categories {
			if c == CategoryNone {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []Category{CategoryNone}
	}
	return out
}

// ParentAlert reports whether any layer asked for a guardian notification.
func (r *Run) ParentAlert() bool {
	for _, v := range r.LayerResults {
		if v.ParentAlert {
			return true
		}
	}
	return false
}
