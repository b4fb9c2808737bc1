package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit module.
type Metrics struct {
	EventsRecorded *prometheus.CounterVec
	RecordFailures prometheus.Counter
	Queries        prometheus.Counter
}

// New creates a new Metrics instance with all audit module metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldledger_audit_events_recorded_total",
			Help: "Total audit events recorded, by action",
		}, []string{"action"}),
		RecordFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fieldledger_audit_record_failures_total",
			Help: "Total audit record attempts that failed at the store",
		}),
		Queries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fieldledger_audit_queries_total",
			Help: "Total audit query pages served",
		}),
	}
}

// IncrementRecorded records a successful append.
func (m *Metrics) IncrementRecorded(action string) {
	m.EventsRecorded.WithLabelValues(action).Inc()
}

// IncrementRecordFailed records a failed append.
func (m *Metrics) IncrementRecordFailed() {
	m.RecordFailures.Inc()
}

// IncrementQueries records one served query page.
func (m *Metrics) IncrementQueries() {
	m.Queries.Inc()
}
