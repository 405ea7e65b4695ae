// Package metrics exposes Prometheus counters for project operations.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
)

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Metrics holds the service's Prometheus collectors.
//
// Metrics:
//   - garden_operations_total{op,result} - operations by outcome; result is "ok" or an error code
//   - garden_treasury_funded_units_total - funds units deposited into treasuries
//   - garden_treasury_withdrawn_units_total - funds units withdrawn from treasuries
type Metrics struct {
	Operations *prometheus.CounterVec
	Funded     prometheus.Counter
	Withdrawn  prometheus.Counter
}

// New registers a fresh set of collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "garden_operations_total",
				Help: "Total number of project operations by outcome",
			},
			[]string{"op", "result"},
		),
		Funded: f.NewCounter(prometheus.CounterOpts{
			Name: "garden_treasury_funded_units_total",
			Help: "Total funds units deposited into project treasuries",
		}),
		Withdrawn: f.NewCounter(prometheus.CounterOpts{
			Name: "garden_treasury_withdrawn_units_total",
			Help: "Total funds units withdrawn from project treasuries",
		}),
	}
}

// Default returns the collectors registered once with the default registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// Observe counts one operation outcome.
func (m *Metrics) Observe(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(domain.CodeOf(err))
		if result == "" {
			result = "internal"
		}
	}
	m.Operations.WithLabelValues(op, result).Inc()
}
