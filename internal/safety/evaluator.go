package safety

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wardenlabs/childguard/internal/observability/metrics"
	"github.com/wardenlabs/childguard/pkg/logging"
)

var evaluatorTracer = otel.Tracer("childguard/safety")

// DefaultEarlyTermination is the confidence a layer's Block verdict needs to
// skip the remaining (more expensive) layers.
const DefaultEarlyTermination = 0.9

// ReviewSink files content for human adjudication and returns a ticket ID.
// The review queue satisfies this; the evaluator only needs the ID.
type ReviewSink interface {
	AddForReview(ctx context.Context, content, subjectID string, results []Verdict) (string, error)
}

// EvaluatorConfig assembles an Evaluator.
type EvaluatorConfig struct {
	// Classifiers in invocation order. Unavailable classifiers are excluded
	// at construction, which is configuration absence, not an error.
	Classifiers []Classifier
	// Reviews receives content whose merged action is Review. May be nil,
	// in which case Review collapses straight to Block.
	Reviews ReviewSink
	// EarlyTermination defaults to DefaultEarlyTermination when <= 0.
	EarlyTermination float64
	Logger           *logging.Logger
	Metrics          *metrics.SafetyMetrics
}

// Evaluator orchestrates the classifier chain: fixed order, pairwise merge,
// early exit on a confident block, escalation of uncertainty into the review
// queue. One Evaluate call owns one Run; concurrent calls share no mutable
// state beyond the review sink.
type Evaluator struct {
	classifiers      []Classifier
	reviews          ReviewSink
	earlyTermination float64
	logger           *logging.Logger
	metrics          *metrics.SafetyMetrics
}

// NewEvaluator builds an evaluator from the configured chain, excluding
// classifiers that report unavailable.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	threshold := cfg.EarlyTermination
	if threshold <= 0 {
		threshold = DefaultEarlyTermination
	}

	var chain []Classifier
	for _, c := range cfg.Classifiers {
		if c == nil {
			continue
		}
		if !c.Available() {
			logger.Info("safety classifier unavailable, excluding from chain", "classifier", c.Name())
			continue
		}
		chain = append(chain, c)
	}

	names := make([]string, len(chain))
	for i, c := range chain {
		names[i] = c.Name()
	}
	logger.Info("safety evaluator initialized", "classifiers", strings.Join(names, ","))

	return &Evaluator{
		classifiers:      chain,
		reviews:          cfg.Reviews,
		earlyTermination: threshold,
		logger:           logger,
		metrics:          cfg.Metrics,
	}
}

// Evaluate runs inbound child text through the full chain. It never returns
// a failure for classifier-induced faults; the worst case is a cautious
// Block.
func (e *Evaluator) Evaluate(ctx context.Context, text string, child ChildContext) *Run {
	run := e.evaluate(ctx, text, child, false)
	e.metrics.ObserveEvaluation("input", run.Final.Action.String())
	return run
}

// EvaluateOutput runs generated text through the chain with review
// submission suppressed (output cannot wait on a human; Review collapses to
// an immediate Block) and appends the readability heuristic for the two
// youngest bands.
func (e *Evaluator) EvaluateOutput(ctx context.Context, text string, child ChildContext) *Run {
	run := e.evaluate(ctx, text, child, true)

	if complexity := checkComplexity(text, child.AgeGroup); complexity != nil {
		run.LayerResults = append(run.LayerResults, *complexity)
		run.LayersExecuted = append(run.LayersExecuted, complexity.Source)
		if complexity.Action.Priority() > run.Final.Action.Priority() {
			run.Final.Action = complexity.Action
			run.Final.Reason = complexity.Reason
			run.Final.Severity = complexity.Severity
		}
	}

	e.metrics.ObserveEvaluation("output", run.Final.Action.String())
	return run
}

func (e *Evaluator) evaluate(ctx context.Context, text string, child ChildContext, suppressReview bool) *Run {
	start := time.Now()
	ctx, span := evaluatorTracer.Start(ctx, "safety.evaluate")
	defer span.End()

	run := &Run{StartedAt: start}
	current := Verdict{
		Action:   ActionAllow,
		Reason:   "no safety concerns detected",
		Severity: SeverityNone,
	}

	for _, classifier := range e.classifiers {
		verdict := e.runLayer(ctx, classifier, text, child)
		run.LayerResults = append(run.LayerResults, verdict)
		run.LayersExecuted = append(run.LayersExecuted, classifier.Name())

		e.logger.Debug("layer result",
			"classifier", classifier.Name(),
			"action", verdict.Action.String(),
			"severity", verdict.Severity.String(),
			"confidence", verdict.Confidence,
		)

		current = mergeDecision(current, verdict)

		// A cheap, confident block saves the remaining network round-trips.
		if verdict.Action == ActionBlock && verdict.Confidence >= e.earlyTermination {
			e.logger.Info("early termination",
				"classifier", classifier.Name(),
				"confidence", verdict.Confidence,
			)
			e.metrics.ObserveEarlyTermination(classifier.Name())
			span.SetAttributes(attribute.String("safety.early_termination", classifier.Name()))
			break
		}
	}

	if current.Action == ActionReview && !suppressReview && e.reviews != nil {
		ticketID, err := e.reviews.AddForReview(ctx, text, child.ChildID, run.LayerResults)
		if err != nil {
			e.logger.Error("failed to file review ticket", "error", err)
			current.Action = ActionBlock
			current.Reason = "content flagged for human review; blocking while queue is unavailable"
		} else {
			run.ReviewTicketID = ticketID
			// Review uncertainty is never exposed to the child as allowed.
			current.Action = ActionBlock
			current.Reason = fmt.Sprintf("content flagged for human review (ticket %s)", ticketID)
			e.metrics.ObserveReviewQueued()
		}
	} else if current.Action == ActionReview && (suppressReview || e.reviews == nil) {
		current.Action = ActionBlock
		current.Reason = "content flagged for review; blocked immediately"
	}

	run.ElapsedMS = float64(time.Since(start).Microseconds()) / 1000

	run.Final = Verdict{
		Action:      current.Action,
		Reason:      current.Reason,
		Severity:    current.Severity,
		Categories:  run.Categories(),
		Confidence:  run.Confidence(),
		ParentAlert: run.ParentAlert(),
		Source:      "multi_layer",
		Metadata: map[string]any{
			"layers_executed":  run.LayersExecuted,
			"review_ticket_id": run.ReviewTicketID,
			"elapsed_ms":       run.ElapsedMS,
		},
	}

	span.SetAttributes(
		attribute.String("safety.action", run.Final.Action.String()),
		attribute.String("safety.severity", run.Final.Severity.String()),
		attribute.Int("safety.layers", len(run.LayersExecuted)),
	)
	return run
}

// runLayer invokes one classifier with the orchestrator-boundary guard: a
// layer that errors or panics past its own fail-safe wrapper is treated as
// suspicious, not as a silent pass.
func (e *Evaluator) runLayer(ctx context.Context, classifier Classifier, text string, child ChildContext) (verdict Verdict) {
	layerStart := time.Now()
	defer func() {
		e.metrics.ObserveLayerLatency(classifier.Name(), time.Since(layerStart).Seconds())
		if r := recover(); r != nil {
			e.logger.Error("classifier panicked", "classifier", classifier.Name(), "panic", r)
			verdict = reviewFallback(classifier.Name(), fmt.Errorf("panic: %v", r))
		}
	}()

	verdict, err := classifier.Classify(ctx, text, child)
	if err != nil {
		e.logger.Error("classifier error", "classifier", classifier.Name(), "error", err)
		return reviewFallback(classifier.Name(), err)
	}
	return verdict
}

func reviewFallback(name string, cause error) Verdict {
	return Verdict{
		Action:     ActionReview,
		Reason:     fmt.Sprintf("classifier %s failed: %v", name, cause),
		Severity:   SeverityMedium,
		Categories: []Category{CategoryNone},
		Confidence: 0,
		Source:     name,
	}
}

// mergeDecision merges an incoming layer verdict into the running decision.
// A strictly higher-priority action replaces action, reason and severity
// wholesale. On a tie the action is kept but a strictly higher incoming
// severity escalates reason and severity. A lower-priority incoming verdict
// stays in the audit trail without changing the decision.
func mergeDecision(current, incoming Verdict) Verdict {
	if incoming.Action.Priority() > current.Action.Priority() {
		current.Action = incoming.Action
		current.Reason = incoming.Reason
		current.Severity = incoming.Severity
		return current
	}
	if incoming.Action.Priority() == current.Action.Priority() && incoming.Severity > current.Severity {
		current.Reason = incoming.Reason
		current.Severity = incoming.Severity
	}
	return current
}

// complexityThresholds gate mean word length and mean sentence length for
// the bands that get the readability check.
var complexityThresholds = map[AgeGroup]struct {
	wordLen     float64
	sentenceLen float64
}{
	AgeGroupEarlyChildhood:  {wordLen: 6, sentenceLen: 12},
	AgeGroupMiddleChildhood: {wordLen: 7, sentenceLen: 18},
}

// checkComplexity flags output that is likely too complex for the child's
// band. Returns nil when no check applies or the text passes.
func checkComplexity(text string, band AgeGroup) *Verdict {
	th, ok := complexityThresholds[band]
	if !ok {
		return nil
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var totalLen int
	for _, w := range words {
		totalLen += len(w)
	}
	avgWordLen := float64(totalLen) / float64(len(words))

	sentences := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
	if sentences < 1 {
		sentences = 1
	}
	avgSentenceLen := float64(len(words)) / float64(sentences)

	if avgWordLen <= th.wordLen && avgSentenceLen <= th.sentenceLen {
		return nil
	}

	return &Verdict{
		Action:     ActionSimplify,
		Reason:     fmt.Sprintf("response may be too complex for %s", band),
		Severity:   SeverityLow,
		Categories: []Category{CategoryAgeInappropriate},
		Confidence: 0.7,
		Source:     "complexity_check",
	}
}
