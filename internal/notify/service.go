package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wardenlabs/childguard/internal/gate"
	"github.com/wardenlabs/childguard/internal/review"
	"github.com/wardenlabs/childguard/internal/safety"
	"github.com/wardenlabs/childguard/pkg/logging"
)

// GuardianDirectory resolves the guardian contact for a child.
type GuardianDirectory interface {
	GuardianEmail(ctx context.Context, childID string) (string, error)
}

// StaticGuardianDirectory is a map-backed directory for deployments that
// configure guardians out of band.
type StaticGuardianDirectory struct {
	emails map[string]string
}

// NewStaticGuardianDirectory creates a directory from a childID->email map.
func NewStaticGuardianDirectory(emails map[string]string) *StaticGuardianDirectory {
	return &StaticGuardianDirectory{emails: emails}
}

// GuardianEmail returns the configured guardian address for childID.
func (d *StaticGuardianDirectory) GuardianEmail(_ context.Context, childID string) (string, error) {
	email, ok := d.emails[childID]
	if !ok || email == "" {
		return "", fmt.Errorf("notify: no guardian configured for child %s", childID)
	}
	return email, nil
}

// Service delivers parent alerts and urgent review notifications over email.
type Service struct {
	email     EmailSender
	guardians GuardianDirectory
	opsEmail  string
	logger    *logging.Logger
}

// ServiceConfig assembles a notification service.
type ServiceConfig struct {
	Email     EmailSender
	Guardians GuardianDirectory
	// OpsEmail receives urgent review-queue notifications. Optional.
	OpsEmail string
	Logger   *logging.Logger
}

// NewService creates a notification service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:     cfg.Email,
		guardians: cfg.Guardians,
		opsEmail:  cfg.OpsEmail,
		logger:    logger,
	}
}

// NotifyParent delivers a guardian alert for a safety incident.
func (s *Service) NotifyParent(ctx context.Context, child safety.ChildContext, alert gate.ParentAlert) error {
	if s.email == nil || s.guardians == nil {
		s.logger.Debug("parent notifications not configured, skipping", "child_id", child.ChildID)
		return nil
	}

	to, err := s.guardians.GuardianEmail(ctx, child.ChildID)
	if err != nil {
		return fmt.Errorf("notify: resolve guardian for %s: %w", child.ChildID, err)
	}

	body := alert.Message
	if alert.FollowUpRecommended {
		body += "\n\nFollow-up recommended."
	}

	if err := s.email.Send(ctx, EmailMessage{
		To:      to,
		Subject: alert.Subject,
		Body:    body,
	}); err != nil {
		return fmt.Errorf("notify: parent alert to %s: %w", to, err)
	}

	s.logger.Info("parent alert delivered", "child_id", child.ChildID, "urgency", alert.Urgency)
	return nil
}

// NotifyUrgentTicket alerts the moderation inbox about an urgent review
// ticket. Registered as a queue urgent callback; errors are logged, never
// propagated, because queue notification hooks are best-effort.
func (s *Service) NotifyUrgentTicket(t review.Ticket) {
	if s.email == nil || s.opsEmail == "" {
		return
	}

	var reasons []string
	for _, v := range t.ClassifierResults {
		if v.Severity >= safety.SeverityHigh {
			reasons = append(reasons, fmt.Sprintf("%s: %s", v.Source, v.Reason))
		}
	}

	msg := EmailMessage{
		To:      s.opsEmail,
		Subject: fmt.Sprintf("Urgent review ticket %s", t.ID),
		Body: fmt.Sprintf(
			"An urgent safety review ticket was filed for subject %s at %s.\n\n%s",
			t.SubjectID, t.CreatedAt.Format("2006-01-02 15:04:05 MST"), strings.Join(reasons, "\n"),
		),
	}
	if err := s.email.Send(context.Background(), msg); err != nil {
		s.logger.Error("urgent ticket notification failed", "ticket_id", t.ID, "error", err)
	}
}

var _ gate.AlertNotifier = (*Service)(nil)
