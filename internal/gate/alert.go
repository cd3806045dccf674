package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/wardenlabs/childguard/internal/safety"
)

// Event is the structured safety record exposed to the parent-dashboard
// collaborator for every decision.
type Event struct {
	InputPreview string          `json:"input_preview"`
	Action       safety.Action   `json:"action"`
	Reason       string          `json:"reason"`
	Severity     safety.Severity `json:"severity"`
	Timestamp    time.Time       `json:"timestamp"`
}

// ParentAlert is the human-readable escalation record for guardian
// notification.
type ParentAlert struct {
	Subject             string `json:"subject"`
	Message             string `json:"message"`
	Urgency             string `json:"urgency"` // low, medium, high
	FollowUpRecommended bool   `json:"follow_up_recommended"`
}

// AlertNotifier delivers parent alerts. Implementations live in the notify
// package; delivery is best-effort from the gate's perspective.
type AlertNotifier interface {
	NotifyParent(ctx context.Context, child safety.ChildContext, alert ParentAlert) error
}

const previewLimit = 80

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit]) + "..."
}

// buildParentAlert turns a concerning verdict into a guardian-facing
// message. Alerts describe the incident without repeating the flagged
// content verbatim.
func buildParentAlert(child safety.ChildContext, verdict safety.Verdict) ParentAlert {
	urgency := "low"
	switch {
	case verdict.Severity >= safety.SeverityHigh:
		urgency = "high"
	case verdict.Severity >= safety.SeverityMedium:
		urgency = "medium"
	}

	followUp := verdict.Severity >= safety.SeverityHigh
	for _, cat := range verdict.Categories {
		if cat == safety.CategorySelfHarm || cat == safety.CategoryPII {
			followUp = true
		}
	}

	category := "a safety concern"
	if len(verdict.Categories) > 0 && verdict.Categories[0] != safety.CategoryNone {
		category = fmt.Sprintf("content in the %q category", string(verdict.Categories[0]))
	}

	return ParentAlert{
		Subject: fmt.Sprintf("Safety notice: conversation %s", verdict.Action),
		Message: fmt.Sprintf(
			"During a recent conversation, the companion detected %s (severity: %s) and took the %q action. %s",
			category, verdict.Severity, verdict.Action, followUpSentence(followUp),
		),
		Urgency:             urgency,
		FollowUpRecommended: followUp,
	}
}

func followUpSentence(followUp bool) string {
	if followUp {
		return "We recommend checking in with your child about this conversation."
	}
	return "No action is needed; this notice is for your awareness."
}
