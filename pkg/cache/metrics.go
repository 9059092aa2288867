package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Hits tracks cache hits by backend.
	Hits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rest_client_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"backend"}, // "memory" or "redis"
	)

	// Misses tracks cache misses.
	Misses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rest_client_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// Evictions tracks LRU evictions from the in-memory backend.
	Evictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rest_client_cache_evictions_total",
			Help: "Total number of entries evicted from the in-memory cache",
		},
	)

	// Errors tracks cache operation errors.
	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rest_client_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
