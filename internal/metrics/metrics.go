// Package metrics holds the Prometheus collectors exported by the crawler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Endpoint labels.
const (
	EndpointBootstrap  = "bootstrap"
	EndpointHistorical = "historical"
	EndpointMetadata   = "metadata"
	EndpointProbe      = "probe"
)

// Metrics bundles the crawler collectors on a dedicated registry.
type Metrics struct {
	Registry      *prometheus.Registry
	ItemsTotal    *prometheus.CounterVec
	AttemptsTotal *prometheus.CounterVec
	FailuresTotal *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
}

// New constructs and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	items := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytinsight_items_total",
			Help: "Items processed by result (written, partial, skipped, failed).",
		},
		[]string{"result"},
	)
	attempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytinsight_fetch_attempts_total",
			Help: "Network attempts issued per endpoint.",
		},
		[]string{"endpoint"},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytinsight_failures_total",
			Help: "Per-item failures by kind.",
		},
		[]string{"kind"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ytinsight_fetch_duration_seconds",
			Help:    "Latency of successful fetches per endpoint.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	registry.MustRegister(items, attempts, failures, duration)

	return &Metrics{
		Registry:      registry,
		ItemsTotal:    items,
		AttemptsTotal: attempts,
		FailuresTotal: failures,
		FetchDuration: duration,
	}
}

// IncItem counts a processed item.
func (m *Metrics) IncItem(result string) {
	if m == nil {
		return
	}
	m.ItemsTotal.WithLabelValues(result).Inc()
}

// IncAttempt counts one network attempt.
func (m *Metrics) IncAttempt(endpoint string) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(endpoint).Inc()
}

// IncFailure counts a failure of the given kind.
func (m *Metrics) IncFailure(kind string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(kind).Inc()
}

// ObserveFetch records the latency of a completed fetch.
func (m *Metrics) ObserveFetch(endpoint string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
