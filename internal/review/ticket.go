// Package review implements the bounded human-review queue: priority triage
// of uncertain safety cases, TTL expiry, urgent-notification hooks and
// archival of decided tickets.
package review

import (
	"time"

	"github.com/wardenlabs/childguard/internal/safety"
)

// Status is the lifecycle state of a review ticket.
type Status string

const (
	StatusPending  Status = "pending"
	StatusInReview Status = "in_review"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}

// Priority is the triage level of a ticket. Computed once at creation,
// never recomputed.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// priorityRank orders priorities for queue sorting; lower sorts first.
// Comparison is always by rank, never by the display string.
var priorityRank = map[Priority]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityMedium: 2,
	PriorityLow:    3,
}

// Ticket is one item awaiting human adjudication. The queue exclusively
// owns ticket lifecycle after creation; Decision is non-nil iff Status is
// terminal.
type Ticket struct {
	ID                string           `json:"id"`
	Content           string           `json:"content"`
	SubjectID         string           `json:"subject_id"`
	ClassifierResults []safety.Verdict `json:"classifier_results"`
	CreatedAt         time.Time        `json:"created_at"`
	Status            Status           `json:"status"`
	Priority          Priority         `json:"priority"`
	ReviewerID        string           `json:"reviewer_id,omitempty"`
	ReviewedAt        *time.Time       `json:"reviewed_at,omitempty"`
	Decision          *safety.Action   `json:"decision,omitempty"`
	Notes             string           `json:"notes,omitempty"`
}

// Age returns how long the ticket has been in the queue.
func (t *Ticket) Age(now time.Time) time.Duration {
	return now.Sub(t.CreatedAt)
}

// computePriority triages a ticket from its classifier results.
func computePriority(results []safety.Verdict) Priority {
	maxSeverity := safety.SeverityNone
	parentAlert := false
	lowConfidence := false

	for _, v := range results {
		if v.Severity > maxSeverity {
			maxSeverity = v.Severity
		}
		if v.ParentAlert {
			parentAlert = true
		}
		if v.Confidence < 0.5 {
			lowConfidence = true
		}
	}

	switch {
	case maxSeverity == safety.SeverityCritical:
		return PriorityUrgent
	case parentAlert && maxSeverity >= safety.SeverityHigh:
		return PriorityUrgent
	case maxSeverity >= safety.SeverityHigh || parentAlert:
		return PriorityHigh
	case maxSeverity >= safety.SeverityMedium || lowConfidence:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
