package daily

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daily_requests_total",
		Help: "Provider API requests by operation and outcome",
	}, []string{"op", "outcome"})

	metricRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "daily_request_duration_seconds",
		Help:    "Provider API request latency",
		Buckets: prometheus.ExponentialBuckets(0.025, 2, 9),
	}, []string{"op"})
)

func observe(op string, start time.Time, err error) {
	metricRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metricRequests.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	var apiErr *APIError
	var connErr *ConnectionError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.As(err, &connErr):
		return "unreachable"
	default:
		return "error"
	}
}
