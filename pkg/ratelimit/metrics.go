package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for client-side rate limiting.
var (
	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_client_ratelimit_rejections_total",
		Help: "Total requests rejected by the client-side rate limiter by scope",
	}, []string{"scope"}) // "global" or "key"

	tokensGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rest_client_ratelimit_tokens",
		Help: "Tokens currently available in the global bucket",
	})
)
