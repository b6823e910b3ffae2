package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	MovementsCreated     *prometheus.CounterVec
	MovementsUpdated     *prometheus.CounterVec
	ConcurrencyConflicts prometheus.Counter
	InvalidSubmissions   prometheus.Counter
	RetryAttempts        prometheus.Counter
	AuditEmitFailures    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		MovementsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wastetrack_movements_created_total",
			Help: "Total number of waste movement records created",
		}, []string{"org_id"}),
		MovementsUpdated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wastetrack_movements_updated_total",
			Help: "Total number of waste movement record revisions committed",
		}, []string{"org_id"}),
		ConcurrencyConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wastetrack_concurrency_conflicts_total",
			Help: "Total number of conditional writes that matched zero rows",
		}),
		InvalidSubmissions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wastetrack_invalid_submissions_total",
			Help: "Total number of updates that targeted a missing tracking id",
		}),
		RetryAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wastetrack_retry_attempts_total",
			Help: "Total number of backoff re-invocations of store operations",
		}),
		AuditEmitFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wastetrack_audit_emit_failures_total",
			Help: "Total number of audit events that could not be emitted",
		}),
	}
}

func (m *Metrics) IncrementCreated(orgID string) {
	if m == nil {
		return
	}
	m.MovementsCreated.WithLabelValues(orgID).Inc()
}

func (m *Metrics) IncrementUpdated(orgID string) {
	if m == nil {
		return
	}
	m.MovementsUpdated.WithLabelValues(orgID).Inc()
}

func (m *Metrics) IncrementConflicts() {
	if m == nil {
		return
	}
	m.ConcurrencyConflicts.Inc()
}

func (m *Metrics) IncrementInvalidSubmissions() {
	if m == nil {
		return
	}
	m.InvalidSubmissions.Inc()
}

func (m *Metrics) IncrementRetryAttempts() {
	if m == nil {
		return
	}
	m.RetryAttempts.Inc()
}

func (m *Metrics) IncrementAuditEmitFailures() {
	if m == nil {
		return
	}
	m.AuditEmitFailures.Inc()
}
