package gate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenlabs/childguard/internal/safety"
)

type stubClassifier struct {
	verdict safety.Verdict
}

func (s *stubClassifier) Name() string    { return "stub" }
func (s *stubClassifier) Available() bool { return true }
func (s *stubClassifier) Classify(context.Context, string, safety.ChildContext) (safety.Verdict, error) {
	return s.verdict, nil
}

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Record(_ context.Context, _ safety.ChildContext, e Event) {
	r.events = append(r.events, e)
}

type recordingNotifier struct {
	alerts []ParentAlert
	err    error
}

func (r *recordingNotifier) NotifyParent(_ context.Context, _ safety.ChildContext, a ParentAlert) error {
	r.alerts = append(r.alerts, a)
	return r.err
}

func newStubGate(v safety.Verdict, sink EventSink, notifier AlertNotifier) *Gate {
	evaluator := safety.NewEvaluator(safety.EvaluatorConfig{
		Classifiers: []safety.Classifier{&stubClassifier{verdict: v}},
	})
	return New(Config{Evaluator: evaluator, Events: sink, Notifier: notifier})
}

func TestPreCheckRecordsEvent(t *testing.T) {
	sink := &recordingSink{}
	g := newStubGate(safety.Verdict{
		Action: safety.ActionAllow, Reason: "clean", Severity: safety.SeverityNone,
		Confidence: 0.9, Source: "stub",
	}, sink, nil)
	child := safety.NewChildContext("child-1", 8, nil, nil)

	verdict := g.PreCheck(context.Background(), "hello friend", child)
	assert.Equal(t, safety.ActionAllow, verdict.Action)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "hello friend", sink.events[0].InputPreview)
	assert.Equal(t, safety.ActionAllow, sink.events[0].Action)
	assert.False(t, sink.events[0].Timestamp.IsZero())
}

func TestPreCheckTruncatesPreview(t *testing.T) {
	sink := &recordingSink{}
	g := newStubGate(safety.Verdict{
		Action: safety.ActionAllow, Severity: safety.SeverityNone, Confidence: 0.9,
	}, sink, nil)
	child := safety.NewChildContext("child-1", 8, nil, nil)

	long := strings.Repeat("a", 200)
	g.PreCheck(context.Background(), long, child)
	require.Len(t, sink.events, 1)
	assert.Len(t, []rune(sink.events[0].InputPreview), previewLimit+3)
	assert.True(t, strings.HasSuffix(sink.events[0].InputPreview, "..."))
}

func TestPreCheckNotifiesParentOnAlert(t *testing.T) {
	notifier := &recordingNotifier{}
	g := newStubGate(safety.Verdict{
		Action: safety.ActionBlock, Reason: "dangerous request",
		Severity: safety.SeverityCritical, Categories: []safety.Category{safety.CategoryDangerous},
		Confidence: 0.95, ParentAlert: true,
	}, nil, notifier)
	child := safety.NewChildContext("child-1", 8, nil, nil)

	g.PreCheck(context.Background(), "bad text", child)
	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, "high", notifier.alerts[0].Urgency)
	assert.True(t, notifier.alerts[0].FollowUpRecommended)
}

func TestPreCheckNoAlertForCleanContent(t *testing.T) {
	notifier := &recordingNotifier{}
	g := newStubGate(safety.Verdict{
		Action: safety.ActionAllow, Severity: safety.SeverityNone, Confidence: 0.9,
	}, nil, notifier)
	child := safety.NewChildContext("child-1", 8, nil, nil)

	g.PreCheck(context.Background(), "hi", child)
	assert.Empty(t, notifier.alerts)
}

func TestPostCheckAppliesReadability(t *testing.T) {
	g := newStubGate(safety.Verdict{
		Action: safety.ActionAllow, Severity: safety.SeverityNone, Confidence: 0.9,
	}, nil, nil)
	child := safety.NewChildContext("child-1", 4, nil, nil)

	verdict := g.PostCheck(context.Background(),
		"Thermodynamic equilibrium necessitates comprehensive understanding of entropic principles", child)
	assert.Equal(t, safety.ActionSimplify, verdict.Action)
}

func TestBuildParentAlertUrgency(t *testing.T) {
	child := safety.NewChildContext("child-1", 8, nil, nil)

	tests := []struct {
		severity     safety.Severity
		categories   []safety.Category
		wantUrgency  string
		wantFollowUp bool
	}{
		{safety.SeverityCritical, []safety.Category{safety.CategoryViolence}, "high", true},
		{safety.SeverityHigh, []safety.Category{safety.CategoryHarassment}, "high", true},
		{safety.SeverityMedium, []safety.Category{safety.CategoryProfanity}, "medium", false},
		{safety.SeverityLow, []safety.Category{safety.CategoryGambling}, "low", false},
		// Self-harm always recommends follow-up regardless of severity.
		{safety.SeverityLow, []safety.Category{safety.CategorySelfHarm}, "low", true},
		{safety.SeverityLow, []safety.Category{safety.CategoryPII}, "low", true},
	}
	for _, tt := range tests {
		alert := buildParentAlert(child, safety.Verdict{
			Action:     safety.ActionBlock,
			Severity:   tt.severity,
			Categories: tt.categories,
		})
		assert.Equal(t, tt.wantUrgency, alert.Urgency, "severity %s", tt.severity)
		assert.Equal(t, tt.wantFollowUp, alert.FollowUpRecommended, "severity %s categories %v", tt.severity, tt.categories)
		assert.NotEmpty(t, alert.Subject)
		assert.NotEmpty(t, alert.Message)
	}
}

func TestGuidelinesFallback(t *testing.T) {
	assert.NotEmpty(t, Guidelines(safety.AgeGroupEarlyChildhood))
	assert.NotEqual(t, Guidelines(safety.AgeGroupEarlyChildhood), Guidelines(safety.AgeGroupLateTeen))
	// Unknown bands fall back to the middle band.
	assert.Equal(t, Guidelines(safety.AgeGroupMiddleChildhood), Guidelines(safety.AgeGroup("unknown")))
}
