package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "w2s_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "w2s_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	aiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "w2s_ai_request_duration_seconds",
		Help:    "Duration of generative model calls",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
	}, []string{"result"})

	recordsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "w2s_records_created_total",
		Help: "Count of records created, by collection",
	}, []string{"collection"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveAIRequest records one model call; result is "success" or "error".
func ObserveAIRequest(result string, duration time.Duration) {
	aiRequestDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func RecordCreated(collection string) {
	recordsCreated.WithLabelValues(collection).Inc()
}
