package engine

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "gridpred"

// Metrics holds the Prometheus collectors of an Executor.
type Metrics struct {
	// evaluations counts completed runs.
	// Labels: path (index, scan)
	evaluations *prometheus.CounterVec

	// duration measures run latency in seconds.
	// Labels: path (index, scan)
	duration *prometheus.HistogramVec

	// failures counts failed runs.
	// Labels: code (SCAN_LIMIT_EXCEEDED, TYPE_MISMATCH, CANCELED, ...)
	failures *prometheus.CounterVec
}

// NewMetrics creates the executor collectors and registers them with reg.
// Tests pass a fresh prometheus.NewRegistry() to stay isolated from the
// global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "predicate",
			Name:      "evaluations_total",
			Help:      "Total predicate evaluations by execution path",
		}, []string{"path"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "predicate",
			Name:      "duration_seconds",
			Help:      "Predicate evaluation latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"path"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "predicate",
			Name:      "errors_total",
			Help:      "Total failed predicate evaluations by error code",
		}, []string{"code"}),
	}
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the collectors registered with
// prometheus.DefaultRegisterer, creating them on first use.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}
