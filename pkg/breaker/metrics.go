package breaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for circuit breaker state.
var (
	stateGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rest_client_breaker_state",
		Help: "Current circuit breaker state (0=closed, 1=open, 2=half_open)",
	})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_client_breaker_transitions_total",
		Help: "Total circuit breaker state transitions by target state",
	}, []string{"to"})

	rejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rest_client_breaker_rejections_total",
		Help: "Total requests rejected by the circuit breaker",
	})
)
