package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit module. A nil *Metrics is a
// valid no-op collector so tests can omit it.
type Metrics struct {
	Recorded           *prometheus.CounterVec
	AppendFailures     prometheus.Counter
	Escalations        prometheus.Counter
	EscalationFailures prometheus.Counter
}

// NewMetrics registers the audit module metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		Recorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carelock_audit_entries_total",
			Help: "Audit entries recorded, by derived risk level",
		}, []string{"risk_level"}),

		AppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carelock_audit_append_failures_total",
			Help: "Failed durable audit appends (compliance violations)",
		}),

		Escalations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carelock_audit_escalations_total",
			Help: "Critical entries pushed to the escalation side-channel",
		}),

		EscalationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "carelock_audit_escalation_failures_total",
			Help: "Escalation notifications that could not be delivered",
		}),
	}
}

func (m *Metrics) IncRecorded(riskLevel string) {
	if m != nil {
		m.Recorded.WithLabelValues(riskLevel).Inc()
	}
}

func (m *Metrics) IncAppendFailures() {
	if m != nil {
		m.AppendFailures.Inc()
	}
}

func (m *Metrics) IncEscalations() {
	if m != nil {
		m.Escalations.Inc()
	}
}

func (m *Metrics) IncEscalationFailures() {
	if m != nil {
		m.EscalationFailures.Inc()
	}
}
