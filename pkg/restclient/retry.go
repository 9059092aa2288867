package restclient

import (
	"errors"
	"math"
	"time"

	"github.com/kettelby/go-rest-client/pkg/config"
)

// retryPolicy decides which outcomes are retried and how long to wait
// between attempts. It is immutable after client construction.
type retryPolicy struct {
	maxAttempts   int
	retryStatuses map[int]struct{}
	backoffFactor time.Duration
	backoffMax    time.Duration
}

func newRetryPolicy(cfg config.Retry) retryPolicy {
	statuses := make(map[int]struct{}, len(cfg.RetryStatuses))
	for _, code := range cfg.RetryStatuses {
		statuses[code] = struct{}{}
	}
	return retryPolicy{
		maxAttempts:   cfg.MaxAttempts,
		retryStatuses: statuses,
		backoffFactor: cfg.BackoffFactor,
		backoffMax:    cfg.BackoffMax,
	}
}

// retryable reports whether a classified failure may be retried: transport
// connection and timeout failures always, HTTP status failures when the
// status is in the configured retry set. A breaker-open rejection is never
// retryable; it propagates immediately.
func (p retryPolicy) retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Kind {
	case KindCircuitOpen, KindRateLimited:
		return false
	case KindConnection, KindConnectTimeout, KindReadTimeout, KindWriteTimeout, KindTimeout:
		return true
	}

	if e.StatusCode > 0 {
		_, ok := p.retryStatuses[e.StatusCode]
		return ok
	}
	return false
}

// backoff returns the wait before attempt k (1-indexed, k >= 2):
// min(backoffFactor * 2^(k-2), backoffMax).
func (p retryPolicy) backoff(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	d := time.Duration(float64(p.backoffFactor) * math.Pow(2, float64(attempt-2)))
	if d > p.backoffMax || d < 0 {
		d = p.backoffMax
	}
	return d
}
