// Package gate is the consumer-facing facade over the safety pipeline:
// pre-check for inbound child messages, post-check for generated replies,
// and the guardian alerting surface.
package gate

import (
	"context"

	"github.com/wardenlabs/childguard/internal/safety"
	"github.com/wardenlabs/childguard/pkg/logging"
)

// EventSink receives one structured record per safety decision, for the
// parent-dashboard collaborator. May be nil.
type EventSink interface {
	Record(ctx context.Context, child safety.ChildContext, event Event)
}

// Gate wraps the evaluator for callers. The orchestration layer owns what
// to do with the returned verdict (producing user-facing messages and
// continuing the turn on WarnParent); the gate owns the decision itself.
type Gate struct {
	evaluator *safety.Evaluator
	events    EventSink
	notifier  AlertNotifier
	logger    *logging.Logger
}

// Config assembles a Gate.
type Config struct {
	Evaluator *safety.Evaluator
	Events    EventSink     // optional
	Notifier  AlertNotifier // optional
	Logger    *logging.Logger
}

// New creates the safety gate facade.
func New(cfg Config) *Gate {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Gate{
		evaluator: cfg.Evaluator,
		events:    cfg.Events,
		notifier:  cfg.Notifier,
		logger:    logger,
	}
}

// PreCheck evaluates an inbound child message. The child always receives a
// response; the worst case is a cautious block with a gentle redirect.
func (g *Gate) PreCheck(ctx context.Context, text string, child safety.ChildContext) safety.Verdict {
	run := g.evaluator.Evaluate(ctx, text, child)
	g.afterRun(ctx, text, child, run)
	return run.Final
}

// PostCheck evaluates a generated reply before it reaches the child. Output
// is never queued for human review; it is filtered immediately, and the
// readability heuristic may downgrade complex replies to Simplify.
func (g *Gate) PostCheck(ctx context.Context, text string, child safety.ChildContext) safety.Verdict {
	run := g.evaluator.EvaluateOutput(ctx, text, child)
	g.afterRun(ctx, text, child, run)
	return run.Final
}

func (g *Gate) afterRun(ctx context.Context, text string, child safety.ChildContext, run *safety.Run) {
	event := Event{
		InputPreview: preview(text),
		Action:       run.Final.Action,
		Reason:       run.Final.Reason,
		Severity:     run.Final.Severity,
		Timestamp:    run.StartedAt,
	}
	if g.events != nil {
		g.events.Record(ctx, child, event)
	}

	g.logger.Info("safety decision",
		"child_id", child.ChildID,
		"action", run.Final.Action.String(),
		"severity", run.Final.Severity.String(),
		"layers", run.LayersExecuted,
		"ticket_id", run.ReviewTicketID,
		"elapsed_ms", run.ElapsedMS,
	)

	if run.Final.ParentAlert && g.notifier != nil {
		alert := buildParentAlert(child, run.Final)
		if err := g.notifier.NotifyParent(ctx, child, alert); err != nil {
			g.logger.Error("parent alert delivery failed", "child_id", child.ChildID, "error", err)
		}
	}
}

// Guidelines returns age-appropriate guidance for the generation model.
func Guidelines(band safety.AgeGroup) string {
	if g, ok := ageGuidelines[band]; ok {
		return g
	}
	return ageGuidelines[safety.AgeGroupMiddleChildhood]
}

var ageGuidelines = map[safety.AgeGroup]string{
	safety.AgeGroupEarlyChildhood: `- Use very simple words (1-2 syllables preferred)
- Keep sentences short (5-10 words)
- Use concrete examples and comparisons to familiar things
- Be warm, encouraging, and playful
- Avoid abstract concepts
- Use lots of analogies to everyday objects`,
	safety.AgeGroupMiddleChildhood: `- Use simple but varied vocabulary
- Keep sentences moderate length (8-15 words)
- Explain concepts with relatable examples
- Be friendly and encouraging
- Can introduce some abstract ideas with concrete support
- Use analogies and "like" comparisons`,
	safety.AgeGroupLateChildhood: `- Use age-appropriate vocabulary
- Can handle longer explanations
- Encourage curiosity and follow-up questions
- Be informative but approachable
- Can discuss more complex topics at basic level`,
	safety.AgeGroupEarlyTeen: `- Use standard vocabulary
- Can handle nuanced explanations
- Treat them with respect for their growing independence
- Be informative and engaging
- Can discuss complex topics appropriately`,
	safety.AgeGroupLateTeen: `- Use full vocabulary
- Provide detailed, accurate information
- Treat them as young adults
- Be informative and direct
- Can discuss most educational topics in depth`,
}
