package policy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the policy module. A nil *Metrics is a
// valid no-op collector so tests can omit it.
type Metrics struct {
	Decisions       *prometheus.CounterVec
	EvaluateLatency prometheus.Histogram
}

// NewMetrics registers the policy module metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carelock_policy_decisions_total",
			Help: "Policy decisions by outcome and risk level",
		}, []string{"outcome", "risk_level"}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "carelock_policy_evaluate_duration_seconds",
			Help:    "Duration of rule-ladder evaluation excluding the audit write",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
		}),
	}
}

func (m *Metrics) IncDecision(allowed bool, riskLevel string) {
	if m != nil {
		outcome := "denied"
		if allowed {
			outcome = "allowed"
		}
		m.Decisions.WithLabelValues(outcome, riskLevel).Inc()
	}
}

func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}
