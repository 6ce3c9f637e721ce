package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects dispatcher metrics.
type Metrics interface {
	RecordAttempt(ctx context.Context, labels AttemptLabels, latency time.Duration)
	RecordEmergencyReply(ctx context.Context)
}

// AttemptLabels contains metric dimensions of one provider attempt.
type AttemptLabels struct {
	Provider string
	Model    string
	// Outcome is "success" or the failure classification.
	Outcome string
}

// PrometheusMetrics implements Metrics on top of a prometheus registerer.
type PrometheusMetrics struct {
	attempts  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	emergency prometheus.Counter
}

// NewPrometheusMetrics creates and registers the relay collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "provider_attempts_total",
			Help:      "Provider attempts by provider, model and outcome.",
		}, []string{"provider", "model", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relay",
			Name:      "provider_attempt_duration_seconds",
			Help:      "Duration of provider attempts.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"provider", "outcome"}),
		emergency: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "emergency_replies_total",
			Help:      "Messages answered from the emergency reply set.",
		}),
	}
	reg.MustRegister(m.attempts, m.latency, m.emergency)
	return m
}

// RecordAttempt counts one provider attempt.
func (m *PrometheusMetrics) RecordAttempt(_ context.Context, labels AttemptLabels, latency time.Duration) {
	m.attempts.WithLabelValues(labels.Provider, labels.Model, labels.Outcome).Inc()
	m.latency.WithLabelValues(labels.Provider, labels.Outcome).Observe(latency.Seconds())
}

// RecordEmergencyReply counts a message that exhausted every provider.
func (m *PrometheusMetrics) RecordEmergencyReply(context.Context) {
	m.emergency.Inc()
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordAttempt(context.Context, AttemptLabels, time.Duration) {}
func (NopMetrics) RecordEmergencyReply(context.Context)                       {}
