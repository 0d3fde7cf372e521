// Package metrics exposes Prometheus counters for batch validation.
// Each Metrics owns its registry, so several daemons (or tests) in one
// process never collide on registration.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "treesync"

// Stage labels for ChangesTotal.
const (
	StageReceived = "received"
	StageFiltered = "filtered"
)

// Metrics holds the validation metrics.
type Metrics struct {
	registry *prometheus.Registry

	// BatchesTotal counts classified batches. Labels: result (validator.ResultKind).
	BatchesTotal *prometheus.CounterVec

	// ChangesTotal counts entries. Labels: stage (received, filtered).
	ChangesTotal *prometheus.CounterVec

	ValidationDuration prometheus.Histogram
}

// New creates and registers all metrics on a fresh registry, along with the
// standard Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		BatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Change batches classified, by result kind",
			},
			[]string{"result"},
		),
		ChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "changes_total",
				Help:      "Path change entries seen, by stage",
			},
			[]string{"stage"},
		),
		ValidationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_duration_seconds",
				Help:      "Time to filter and classify one batch",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
	}
}

// ObserveBatch records one classified batch.
func (m *Metrics) ObserveBatch(result string, received, filtered int, took time.Duration) {
	m.BatchesTotal.WithLabelValues(result).Inc()
	m.ChangesTotal.WithLabelValues(StageReceived).Add(float64(received))
	m.ChangesTotal.WithLabelValues(StageFiltered).Add(float64(filtered))
	m.ValidationDuration.Observe(took.Seconds())
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
