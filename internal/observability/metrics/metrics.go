// Package metrics exposes Prometheus collectors for the safety pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// SafetyMetrics exposes counters/histograms for safety evaluations.
type SafetyMetrics struct {
	evaluationsTotal  *prometheus.CounterVec
	layerLatency      *prometheus.HistogramVec
	earlyTermTotal    *prometheus.CounterVec
	reviewQueuedTotal prometheus.Counter
	reviewPending     prometheus.Gauge
}

// NewSafetyMetrics registers the safety collectors on reg (default registerer
// when nil).
func NewSafetyMetrics(reg prometheus.Registerer) *SafetyMetrics {
	m := &SafetyMetrics{
		evaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "childguard",
			Subsystem: "safety",
			Name:      "evaluations_total",
			Help:      "Total safety evaluations by direction and final action",
		}, []string{"direction", "action"}),
		layerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "childguard",
			Subsystem: "safety",
			Name:      "layer_latency_seconds",
			Help:      "Latency of individual classifier layers",
			Buckets:   prometheus.DefBuckets,
		}, []string{"layer"}),
		earlyTermTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "childguard",
			Subsystem: "safety",
			Name:      "early_terminations_total",
			Help:      "Evaluations cut short by a confident block",
		}, []string{"layer"}),
		reviewQueuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "childguard",
			Subsystem: "review",
			Name:      "queued_total",
			Help:      "Tickets filed with the human review queue",
		}),
		reviewPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "childguard",
			Subsystem: "review",
			Name:      "pending",
			Help:      "Tickets currently pending human review",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.evaluationsTotal, m.layerLatency, m.earlyTermTotal, m.reviewQueuedTotal, m.reviewPending)
	return m
}

func (m *SafetyMetrics) ObserveEvaluation(direction, action string) {
	if m == nil {
		return
	}
	m.evaluationsTotal.WithLabelValues(direction, action).Inc()
}

func (m *SafetyMetrics) ObserveLayerLatency(layer string, seconds float64) {
	if m == nil {
		return
	}
	m.layerLatency.WithLabelValues(layer).Observe(seconds)
}

func (m *SafetyMetrics) ObserveEarlyTermination(layer string) {
	if m == nil {
		return
	}
	m.earlyTermTotal.WithLabelValues(layer).Inc()
}

func (m *SafetyMetrics) ObserveReviewQueued() {
	if m == nil {
		return
	}
	m.reviewQueuedTotal.Inc()
}

func (m *SafetyMetrics) SetReviewPending(n int) {
	if m == nil {
		return
	}
	m.reviewPending.Set(float64(n))
}
