// Package metrics exposes Prometheus metrics for the language server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rspec_lsp"

// Metrics holds the server's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// requests counts LSP requests by method.
	requests *prometheus.CounterVec

	// definitionLinks counts definition results returned.
	definitionLinks prometheus.Counter

	// filesIndexed counts spec files parsed into the helper index.
	filesIndexed prometheus.Counter

	// indexDuration measures full workspace indexing runs.
	indexDuration prometheus.Histogram

	// indexedHelpers is the number of helper declarations in the index.
	indexedHelpers prometheus.Gauge
}

// New creates the metrics and registers them, plus the Go runtime
// collectors, on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "LSP requests handled, by method",
		}, []string{"method"}),
		definitionLinks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "definition",
			Name:      "links_total",
			Help:      "Definition locations returned to the client",
		}),
		filesIndexed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "files_total",
			Help:      "Spec files parsed into the helper index",
		}),
		indexDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "duration_seconds",
			Help:      "Duration of workspace indexing runs",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		indexedHelpers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "helpers",
			Help:      "Helper declarations currently in the index",
		}),
	}
}

// Request records one handled request.
func (m *Metrics) Request(method string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method).Inc()
}

// DefinitionLinks records the number of locations returned by a
// definition request.
func (m *Metrics) DefinitionLinks(n int) {
	if m == nil {
		return
	}
	m.definitionLinks.Add(float64(n))
}

// FileIndexed records one indexed file.
func (m *Metrics) FileIndexed() {
	if m == nil {
		return
	}
	m.filesIndexed.Inc()
}

// IndexRun records a completed workspace indexing run.
func (m *Metrics) IndexRun(duration time.Duration, helpers int) {
	if m == nil {
		return
	}
	m.indexDuration.Observe(duration.Seconds())
	m.indexedHelpers.Set(float64(helpers))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
