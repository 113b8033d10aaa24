package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry controller.
type Metrics struct {
	// Operation outcomes by operation and outcome category
	OperationOutcome *prometheus.CounterVec

	// Full operation latency including the reconciling re-read
	OperationLatency *prometheus.HistogramVec
}

// New creates a Metrics instance with all controller metrics registered.
func New() *Metrics {
	return &Metrics{
		OperationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "anagrafe_controller_operations_total",
			Help: "Total controller operations by operation and outcome",
		}, []string{"operation", "outcome"}),

		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "anagrafe_controller_operation_duration_seconds",
			Help:    "Duration of controller operations including reconciling reads",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
	}
}

// Record counts an operation outcome and observes its duration.
func (m *Metrics) Record(operation, outcome string, d time.Duration) {
	if m != nil {
		m.OperationOutcome.WithLabelValues(operation, outcome).Inc()
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}
