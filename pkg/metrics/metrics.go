// Package metrics provides the centralized Prometheus registry reference
// for the REST client. All metrics are defined in their respective packages
// (restclient, breaker, ratelimit, cache) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the REST client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/restclient):
//   - rest_client_requests_total{endpoint, status} (Counter): Requests by endpoint and outcome.
//     Outcomes are numeric HTTP statuses plus "cache_hit", "rate_limited",
//     "circuit_open", and "transport_error".
//   - rest_client_request_duration_seconds{endpoint} (Histogram): End-to-end request duration
//   - rest_client_errors_total{kind} (Counter): Errors by classification kind
//   - rest_client_retries_total{endpoint} (Counter): Retry attempts
//   - rest_client_retry_exhausted_total{endpoint} (Counter): Requests that exhausted max attempts
//
// Circuit Breaker Metrics (pkg/breaker):
//   - rest_client_breaker_state (Gauge): Current state (0=closed, 1=open, 2=half-open)
//   - rest_client_breaker_transitions_total{to} (Counter): State transitions by target state
//   - rest_client_breaker_rejections_total (Counter): Calls rejected while open
//
// Rate Limit Metrics (pkg/ratelimit):
//   - rest_client_ratelimit_rejections_total{scope} (Counter): Rejections by scope (global, key)
//   - rest_client_ratelimit_tokens (Gauge): Tokens remaining in the global bucket
//
// Cache Metrics (pkg/cache):
//   - rest_client_cache_hits_total{backend} (Counter): Cache hits by backend (memory, redis)
//   - rest_client_cache_misses_total (Counter): Cache misses
//   - rest_client_cache_evictions_total (Counter): LRU evictions from the memory backend
//   - rest_client_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(rest_client_cache_hits_total[5m])) /
//   (sum(rate(rest_client_cache_hits_total[5m])) + sum(rate(rest_client_cache_misses_total[5m])))
//
//   # Breaker Open?
//   rest_client_breaker_state == 1
//
//   # Request Error Rate
//   rate(rest_client_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(rest_client_request_duration_seconds_bucket[5m]))
//
//   # Retry Pressure
//   rate(rest_client_retries_total[5m]) / rate(rest_client_requests_total[5m])
