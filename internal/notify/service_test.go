package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenlabs/childguard/internal/gate"
	"github.com/wardenlabs/childguard/internal/review"
	"github.com/wardenlabs/childguard/internal/safety"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func TestNotifyParentSendsToGuardian(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(ServiceConfig{
		Email:     sender,
		Guardians: NewStaticGuardianDirectory(map[string]string{"child-1": "parent@example.com"}),
	})
	child := safety.NewChildContext("child-1", 8, nil, nil)

	err := svc.NotifyParent(context.Background(), child, gate.ParentAlert{
		Subject:             "Safety notice",
		Message:             "Something happened.",
		Urgency:             "high",
		FollowUpRecommended: true,
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "parent@example.com", sender.sent[0].To)
	assert.Equal(t, "Safety notice", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "Follow-up recommended")
}

func TestNotifyParentUnknownChild(t *testing.T) {
	svc := NewService(ServiceConfig{
		Email:     &recordingSender{},
		Guardians: NewStaticGuardianDirectory(map[string]string{}),
	})
	child := safety.NewChildContext("child-9", 8, nil, nil)

	err := svc.NotifyParent(context.Background(), child, gate.ParentAlert{Subject: "s", Message: "m"})
	assert.Error(t, err)
}

func TestNotifyParentSkipsWhenUnconfigured(t *testing.T) {
	svc := NewService(ServiceConfig{})
	child := safety.NewChildContext("child-1", 8, nil, nil)
	assert.NoError(t, svc.NotifyParent(context.Background(), child, gate.ParentAlert{}))
}

func TestNotifyParentSendFailure(t *testing.T) {
	svc := NewService(ServiceConfig{
		Email:     &recordingSender{err: errors.New("smtp down")},
		Guardians: NewStaticGuardianDirectory(map[string]string{"child-1": "parent@example.com"}),
	})
	child := safety.NewChildContext("child-1", 8, nil, nil)
	assert.Error(t, svc.NotifyParent(context.Background(), child, gate.ParentAlert{Subject: "s"}))
}

func TestNotifyUrgentTicket(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(ServiceConfig{Email: sender, OpsEmail: "mods@example.com"})

	svc.NotifyUrgentTicket(review.Ticket{
		ID:        "ticket-9",
		SubjectID: "child-1",
		CreatedAt: time.Now(),
		Priority:  review.PriorityUrgent,
		ClassifierResults: []safety.Verdict{{
			Source:   "pattern_blocklist",
			Reason:   "dangerous instruction request detected",
			Severity: safety.SeverityCritical,
		}},
	})
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "mods@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Subject, "ticket-9")
	assert.Contains(t, sender.sent[0].Body, "dangerous instruction request detected")

	// Without an ops inbox the hook is a no-op.
	quiet := NewService(ServiceConfig{Email: sender})
	quiet.NotifyUrgentTicket(review.Ticket{ID: "t2"})
	assert.Len(t, sender.sent, 1)
}

func TestStaticGuardianDirectory(t *testing.T) {
	d := NewStaticGuardianDirectory(map[string]string{"a": "a@example.com", "b": ""})

	email, err := d.GuardianEmail(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)

	_, err = d.GuardianEmail(context.Background(), "b")
	assert.Error(t, err)
	_, err = d.GuardianEmail(context.Background(), "missing")
	assert.Error(t, err)
}
