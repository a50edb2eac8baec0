package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var defaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

// prometheusMetrics wraps the Prometheus collectors backing one Collector.
type prometheusMetrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	historyWrites   *prometheus.CounterVec
}

func newPrometheusMetrics(namespace string, buckets []float64) *prometheusMetrics {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	pm := &prometheusMetrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of dispatched storage-orchestrator actions",
			},
			[]string{"action", "outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_ms",
				Help:      "Dispatched action latency in milliseconds",
				Buckets:   buckets,
			},
			[]string{"action", "outcome"},
		),
		responseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "response_size_bytes",
				Help:      "Encoded response document size in bytes",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"action"},
		),
		historyWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_writes_total",
				Help:      "Total number of version-history documents written",
			},
			[]string{"action"},
		),
	}

	registry.MustRegister(pm.requestsTotal, pm.requestDuration, pm.responseSize, pm.historyWrites)
	return pm
}

func (pm *prometheusMetrics) observe(action, outcome string, durationMs int64, responseBytes int) {
	pm.requestsTotal.WithLabelValues(action, outcome).Inc()
	pm.requestDuration.WithLabelValues(action, outcome).Observe(float64(durationMs))
	if responseBytes > 0 {
		pm.responseSize.WithLabelValues(action).Observe(float64(responseBytes))
	}
}

func (pm *prometheusMetrics) observeHistoryWrites(action string, n int) {
	if n > 0 {
		pm.historyWrites.WithLabelValues(action).Add(float64(n))
	}
}

// Handler returns an http.Handler serving this registry's metrics in the
// Prometheus exposition format.
func (pm *prometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}
