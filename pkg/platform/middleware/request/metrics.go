package request

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks per-route latency and exact status codes. Exact codes matter
// on intake routes, where 409 and 429 are guard outcomes rather than faults.
type Metrics struct {
	RequestLatency *prometheus.HistogramVec
	Responses      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "guidinghand_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route pattern and status class",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		Responses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "guidinghand_http_responses_total",
			Help: "HTTP responses by method, route pattern, and status code",
		}, []string{"method", "route", "code"}),
	}
}

func (m *Metrics) observe(method, route string, code int, durationSeconds float64) {
	m.RequestLatency.WithLabelValues(route, strconv.Itoa(code/100)+"xx").Observe(durationSeconds)
	m.Responses.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}
