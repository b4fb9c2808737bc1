package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for identifier allocation.
type Metrics struct {
	Allocated        *prometheus.CounterVec
	AllocationFailed *prometheus.CounterVec
}

// New creates a new Metrics instance with all sequence module metrics registered.
func New() *Metrics {
	return &Metrics{
		Allocated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldledger_sequence_allocated_total",
			Help: "Total identifiers allocated, by category",
		}, []string{"category"}),
		AllocationFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldledger_sequence_allocation_failures_total",
			Help: "Total identifier allocation failures, by category",
		}, []string{"category"}),
	}
}

// IncrementAllocated records a successful allocation.
func (m *Metrics) IncrementAllocated(category string) {
	m.Allocated.WithLabelValues(category).Inc()
}

// IncrementAllocationFailed records an allocation that failed at the store.
func (m *Metrics) IncrementAllocationFailed(category string) {
	m.AllocationFailed.WithLabelValues(category).Inc()
}
