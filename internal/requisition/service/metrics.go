package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts workflow activity. A nil *Metrics records nothing.
type Metrics struct {
	created     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "requisition",
			Name:      "requests_created_total",
			Help:      "Purchase requests created, by creator role and document type.",
		}, []string{"role", "document_type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "requisition",
			Name:      "transitions_total",
			Help:      "Applied status transitions.",
		}, []string{"from", "to", "role"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "requisition",
			Name:      "transition_failures_total",
			Help:      "Transition attempts refused, by reason class.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.created, m.transitions, m.rejected)
	return m
}

func (m *Metrics) requestCreated(role, documentType string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(role, documentType).Inc()
}

func (m *Metrics) transitioned(from, to, role string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, role).Inc()
}

func (m *Metrics) refused(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}
