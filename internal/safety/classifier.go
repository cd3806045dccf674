package safety

import (
	"context"
	"fmt"
)

// Classifier is one pluggable scoring layer in the evaluation chain.
//
// Classify must never surface internal failures to the caller as an error:
// implementations convert failures into a fail-safe verdict. The error return
// exists for orchestration-level faults only (the evaluator treats it as
// suspicious, not as a silent pass).
type Classifier interface {
	// Name is the stable identity used in audit trails and merge logs.
	Name() string
	// Available reports whether the classifier is configured and reachable
	// enough to be included in the chain. Unavailable is not an error.
	Available() bool
	Classify(ctx context.Context, text string, child ChildContext) (Verdict, error)
}

// failSafe carries the per-classifier failure policy. A fail-safe classifier
// converts any internal failure into Block/High with a parent alert;
// uncertainty must resolve to refusal, never to exposure. Only classifiers
// explicitly configured non-fail-safe degrade to Allow instead.
type failSafe struct {
	enabled bool
}

func (f failSafe) verdict(source string, cause error) Verdict {
	if f.enabled {
		return Verdict{
			Action:      ActionBlock,
			Reason:      fmt.Sprintf("safety classifier failed: %v; blocking for safety", cause),
			Severity:    SeverityHigh,
			Categories:  []Category{CategoryNone},
			Confidence:  0,
			ParentAlert: true,
			Source:      source,
		}
	}
	return Verdict{
		Action:     ActionAllow,
		Reason:     fmt.Sprintf("safety classifier failed: %v; allowing (non-fail-safe)", cause),
		Severity:   SeverityNone,
		Categories: []Category{CategoryNone},
		Confidence: 0,
		Source:     source,
	}
}
