package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSafetyMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSafetyMetrics(reg)
	m.ObserveEvaluation("input", "block")
	m.ObserveLayerLatency("pattern_blocklist", 0.002)
	m.ObserveEarlyTermination("pattern_blocklist")
	m.ObserveReviewQueued()
	m.SetReviewPending(3)
}

func TestSafetyMetricsNilSafe(t *testing.T) {
	var m *SafetyMetrics
	m.ObserveEvaluation("input", "allow")
	m.ObserveLayerLatency("layer", 0.1)
	m.ObserveEarlyTermination("layer")
	m.ObserveReviewQueued()
	m.SetReviewPending(0)
}
