package restclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for request pipeline operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_client_requests_total",
		Help: "Total requests by endpoint and outcome",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rest_client_request_duration_seconds",
		Help:    "Request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_client_errors_total",
		Help: "Total classified request errors by kind",
	}, []string{"kind"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_client_retries_total",
		Help: "Total retry attempts by endpoint",
	}, []string{"endpoint"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_client_retry_exhausted_total",
		Help: "Total requests that exhausted their retry attempts",
	}, []string{"endpoint"})
)
