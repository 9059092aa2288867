package restclient

import (
	"errors"
	"testing"
	"time"

	"github.com/kettelby/go-rest-client/pkg/config"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	p := newRetryPolicy(config.Retry{
		MaxAttempts:   10,
		BackoffFactor: 500 * time.Millisecond,
		BackoffMax:    5 * time.Second,
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 0},
		{2, 500 * time.Millisecond},
		{3, time.Second},
		{4, 2 * time.Second},
		{5, 4 * time.Second},
		{6, 5 * time.Second}, // 8s capped
		{7, 5 * time.Second},
	}

	for _, tt := range tests {
		if got := p.backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryPolicy_BackoffOverflowCapped(t *testing.T) {
	p := newRetryPolicy(config.Retry{
		MaxAttempts:   1000,
		BackoffFactor: time.Second,
		BackoffMax:    time.Minute,
	})

	// Large exponents overflow the duration arithmetic; the cap must
	// still hold.
	if got := p.backoff(200); got != time.Minute {
		t.Errorf("backoff(200) = %v, want %v", got, time.Minute)
	}
}

func TestRetryPolicy_Retryable(t *testing.T) {
	p := newRetryPolicy(config.Default().Retry)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection", &Error{Kind: KindConnection}, true},
		{"connect_timeout", &Error{Kind: KindConnectTimeout}, true},
		{"read_timeout", &Error{Kind: KindReadTimeout}, true},
		{"write_timeout", &Error{Kind: KindWriteTimeout}, true},
		{"generic_timeout", &Error{Kind: KindTimeout}, true},
		{"status_500", &Error{Kind: KindServer, StatusCode: 500}, true},
		{"status_503", &Error{Kind: KindServer, StatusCode: 503}, true},
		{"status_429", &Error{Kind: KindRateLimit, StatusCode: 429}, true},
		{"status_408", &Error{Kind: KindClientResponse, StatusCode: 408}, true},
		{"status_404", &Error{Kind: KindNotFound, StatusCode: 404}, false},
		{"status_400", &Error{Kind: KindClientResponse, StatusCode: 400}, false},
		{"status_401", &Error{Kind: KindAuthentication, StatusCode: 401}, false},
		{"circuit_open", &Error{Kind: KindCircuitOpen}, false},
		{"rate_limited_locally", &Error{Kind: KindRateLimited}, false},
		{"validation", &Error{Kind: KindValidation}, false},
		{"untyped", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.retryable(tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryPolicy_CustomStatusSet(t *testing.T) {
	p := newRetryPolicy(config.Retry{
		MaxAttempts:   3,
		RetryStatuses: []int{503},
		BackoffFactor: time.Millisecond,
		BackoffMax:    time.Second,
	})

	if !p.retryable(&Error{Kind: KindServer, StatusCode: 503}) {
		t.Error("retryable(503) = false, want true")
	}
	if p.retryable(&Error{Kind: KindServer, StatusCode: 500}) {
		t.Error("retryable(500) = true, want false with a custom status set")
	}
}
