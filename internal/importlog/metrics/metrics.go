package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the importlog module.
type Metrics struct {
	JobsStarted   prometheus.Counter
	JobsFinalized *prometheus.CounterVec
	LinesAppended *prometheus.CounterVec
	AppendFailed  prometheus.Counter
}

// New creates a new Metrics instance with all importlog module metrics registered.
func New() *Metrics {
	return &Metrics{
		JobsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fieldledger_import_jobs_started_total",
			Help: "Total import jobs started",
		}),
		JobsFinalized: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldledger_import_jobs_finalized_total",
			Help: "Total import jobs finalized, by terminal status",
		}, []string{"status"}),
		LinesAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldledger_import_log_lines_total",
			Help: "Total import log lines appended, by severity",
		}, []string{"severity"}),
		AppendFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fieldledger_import_log_append_failures_total",
			Help: "Total log line appends that failed at the store",
		}),
	}
}

// IncrementJobsStarted records a job entering the running state.
func (m *Metrics) IncrementJobsStarted() {
	m.JobsStarted.Inc()
}

// IncrementJobsFinalized records a job reaching a terminal status.
func (m *Metrics) IncrementJobsFinalized(status string) {
	m.JobsFinalized.WithLabelValues(status).Inc()
}

// IncrementLinesAppended records a successful line append.
func (m *Metrics) IncrementLinesAppended(severity string) {
	m.LinesAppended.WithLabelValues(severity).Inc()
}

// IncrementAppendFailed records a failed line append.
func (m *Metrics) IncrementAppendFailed() {
	m.AppendFailed.Inc()
}
