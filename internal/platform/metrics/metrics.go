// Package metrics holds the transport-level Prometheus metrics. Feature
// counters live with their feature packages; this covers the HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type HTTP struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

// NewHTTP registers the request counter and latency histogram, labeled by
// method and status class so cardinality stays bounded.
func NewHTTP() *HTTP {
	return &HTTP{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credreg_http_requests_total",
			Help: "Total HTTP requests handled",
		}, []string{"method", "status"}),
		Latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credreg_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Observe records one handled request.
func (m *HTTP) Observe(method, status string, seconds float64) {
	m.Requests.WithLabelValues(method, status).Inc()
	m.Latency.WithLabelValues(method).Observe(seconds)
}
