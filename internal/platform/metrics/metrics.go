package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-wide Prometheus metrics. Module-specific metrics live
// in each module's metrics package.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
}

// New creates and registers all process-wide Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pramaan_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method"}),
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pramaan_http_requests_total",
			Help: "HTTP requests by route, method and status class",
		}, []string{"route", "method", "status"}),
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	m.RequestDuration.WithLabelValues(route, method).Observe(seconds)
	m.RequestsTotal.WithLabelValues(route, method, status).Inc()
}
