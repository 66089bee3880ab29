// Package metrics records wallet engine outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector receives one observation per engine operation.
type Collector interface {
	ObserveOperation(operation, outcome string, d time.Duration)
	ObserveRecovered(n int)
}

// Noop discards everything.
type Noop struct{}

func (Noop) ObserveOperation(string, string, time.Duration) {}
func (Noop) ObserveRecovered(int)                           {}

// Prometheus is a Collector backed by client_golang vectors.
type Prometheus struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	recovered  prometheus.Counter
}

// NewPrometheus registers the engine collectors with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_engine_operations_total",
				Help: "Total number of wallet engine operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_engine_operation_duration_seconds",
				Help:    "Duration of wallet engine operations",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2},
			},
			[]string{"operation"},
		),
		recovered: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wallet_engine_pending_recovered_total",
				Help: "Total number of abandoned PENDING entries resolved to FAILED",
			},
		),
	}
}

func (p *Prometheus) ObserveOperation(operation, outcome string, d time.Duration) {
	p.operations.WithLabelValues(operation, outcome).Inc()
	p.duration.WithLabelValues(operation).Observe(d.Seconds())
}

func (p *Prometheus) ObserveRecovered(n int) {
	p.recovered.Add(float64(n))
}
