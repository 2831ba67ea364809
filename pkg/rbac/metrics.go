package rbac

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for authorization decisions
type Metrics struct {
	decisionsTotal *prometheus.CounterVec
}

// NewMetrics creates authorization metrics and registers them with reg.
// A nil registerer leaves the metrics unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamgate_authz_decisions_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"action", "result"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.decisionsTotal)
	}

	return m
}

// RecordDecision increments the decision counter
func (m *Metrics) RecordDecision(action Action, decision Decision) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(action.String(), decision.result()).Inc()
}
