package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks outbound integration calls and their classified faults.
type Metrics struct {
	callsTotal   *prometheus.CounterVec
	faultsTotal  *prometheus.CounterVec
	retriesTotal prometheus.Counter
}

// New registers integration metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		callsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldledger_integration_calls_total",
			Help: "Outbound integration calls by endpoint.",
		}, []string{"endpoint"}),
		faultsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldledger_integration_faults_total",
			Help: "Classified integration faults by kind.",
		}, []string{"kind"}),
		retriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fieldledger_integration_retries_total",
			Help: "Retry attempts made after retryable faults.",
		}),
	}
}

func (m *Metrics) IncrementCalls(endpoint string) {
	m.callsTotal.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) IncrementFaults(kind string) {
	m.faultsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementRetries() {
	m.retriesTotal.Inc()
}
