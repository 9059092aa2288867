// Package config defines the client configuration surface: defaults for
// every tunable, environment variable binding under the REST_CLIENT prefix,
// and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all environment variable overrides,
// e.g. REST_CLIENT_RETRY_MAX_ATTEMPTS=5.
const EnvPrefix = "REST_CLIENT"

// Retry configures the retry policy.
type Retry struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// RetryStatuses lists HTTP status codes that are retried.
	RetryStatuses []int

	// BackoffFactor is the base backoff; attempt k waits
	// min(BackoffFactor * 2^(k-2), BackoffMax).
	BackoffFactor time.Duration

	// BackoffMax caps the backoff between attempts.
	BackoffMax time.Duration
}

// Timeout configures transport-level timeouts.
type Timeout struct {
	Connect time.Duration
	Read    time.Duration
	Write   time.Duration
	Pool    time.Duration
}

// Breaker configures the circuit breaker.
type Breaker struct {
	FailureThreshold    int
	SuccessThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxCalls    int
	IncludedStatusCodes []int

	// FailureRateThreshold and SamplingDuration are part of the
	// configuration surface but tripping is count-based only.
	FailureRateThreshold float64
	SamplingDuration     time.Duration
}

// RateLimit configures the client-side rate limiter.
type RateLimit struct {
	Strategy    string
	MaxRequests int
	TimeWindow  time.Duration
	BurstSize   int
	PerKey      bool
}

// Cache configures the response cache.
type Cache struct {
	Enabled              bool
	DefaultTTL           time.Duration
	CacheableStatusCodes []int
	MaxEntries           int
}

// Config is the full client configuration.
type Config struct {
	// BaseURL is prepended to request paths. Optional; absolute request
	// URLs bypass it.
	BaseURL string

	// Headers are default headers applied to every request.
	Headers map[string]string

	Timeout        Timeout
	Retry          Retry
	CircuitBreaker Breaker
	RateLimit      RateLimit
	Cache          Cache
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Headers: map[string]string{},
		Timeout: Timeout{
			Connect: 5 * time.Second,
			Read:    30 * time.Second,
			Write:   30 * time.Second,
			Pool:    10 * time.Second,
		},
		Retry: Retry{
			MaxAttempts:   3,
			RetryStatuses: []int{408, 429, 500, 502, 503, 504},
			BackoffFactor: 500 * time.Millisecond,
			BackoffMax:    60 * time.Second,
		},
		CircuitBreaker: Breaker{
			FailureThreshold:     5,
			SuccessThreshold:     2,
			ResetTimeout:         30 * time.Second,
			HalfOpenMaxCalls:     3,
			IncludedStatusCodes:  []int{500, 502, 503, 504},
			FailureRateThreshold: 0.5,
			SamplingDuration:     60 * time.Second,
		},
		RateLimit: RateLimit{
			Strategy:    "token_bucket",
			MaxRequests: 100,
			TimeWindow:  60 * time.Second,
			BurstSize:   10,
		},
		Cache: Cache{
			Enabled:              false,
			DefaultTTL:           300 * time.Second,
			CacheableStatusCodes: []int{200, 203, 204, 206, 300, 301, 308},
			MaxEntries:           1000,
		},
	}
}

// Load builds a Config from defaults overridden by environment variables
// under EnvPrefix. A .env file in the working directory is honored when
// present. Duration values use Go duration syntax, e.g. "30s".
func Load() (Config, error) {
	// Best effort; a missing .env file is the normal case.
	_ = godotenv.Load()

	def := Default()
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_url", def.BaseURL)

	v.SetDefault("retry.max_attempts", def.Retry.MaxAttempts)
	v.SetDefault("retry.retry_statuses", def.Retry.RetryStatuses)
	v.SetDefault("retry.backoff_factor", def.Retry.BackoffFactor)
	v.SetDefault("retry.backoff_max", def.Retry.BackoffMax)

	v.SetDefault("timeout.connect", def.Timeout.Connect)
	v.SetDefault("timeout.read", def.Timeout.Read)
	v.SetDefault("timeout.write", def.Timeout.Write)
	v.SetDefault("timeout.pool", def.Timeout.Pool)

	v.SetDefault("cb.failure_threshold", def.CircuitBreaker.FailureThreshold)
	v.SetDefault("cb.success_threshold", def.CircuitBreaker.SuccessThreshold)
	v.SetDefault("cb.reset_timeout", def.CircuitBreaker.ResetTimeout)
	v.SetDefault("cb.half_open_max_calls", def.CircuitBreaker.HalfOpenMaxCalls)
	v.SetDefault("cb.included_status_codes", def.CircuitBreaker.IncludedStatusCodes)
	v.SetDefault("cb.failure_rate_threshold", def.CircuitBreaker.FailureRateThreshold)
	v.SetDefault("cb.sampling_duration", def.CircuitBreaker.SamplingDuration)

	v.SetDefault("ratelimit.strategy", def.RateLimit.Strategy)
	v.SetDefault("ratelimit.max_requests", def.RateLimit.MaxRequests)
	v.SetDefault("ratelimit.time_window", def.RateLimit.TimeWindow)
	v.SetDefault("ratelimit.burst_size", def.RateLimit.BurstSize)
	v.SetDefault("ratelimit.per_key", def.RateLimit.PerKey)

	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.default_ttl", def.Cache.DefaultTTL)
	v.SetDefault("cache.cacheable_status_codes", def.Cache.CacheableStatusCodes)
	v.SetDefault("cache.max_entries", def.Cache.MaxEntries)

	cfg := Config{
		BaseURL: v.GetString("base_url"),
		Headers: map[string]string{},
		Timeout: Timeout{
			Connect: v.GetDuration("timeout.connect"),
			Read:    v.GetDuration("timeout.read"),
			Write:   v.GetDuration("timeout.write"),
			Pool:    v.GetDuration("timeout.pool"),
		},
		Retry: Retry{
			MaxAttempts:   v.GetInt("retry.max_attempts"),
			RetryStatuses: v.GetIntSlice("retry.retry_statuses"),
			BackoffFactor: v.GetDuration("retry.backoff_factor"),
			BackoffMax:    v.GetDuration("retry.backoff_max"),
		},
		CircuitBreaker: Breaker{
			FailureThreshold:     v.GetInt("cb.failure_threshold"),
			SuccessThreshold:     v.GetInt("cb.success_threshold"),
			ResetTimeout:         v.GetDuration("cb.reset_timeout"),
			HalfOpenMaxCalls:     v.GetInt("cb.half_open_max_calls"),
			IncludedStatusCodes:  v.GetIntSlice("cb.included_status_codes"),
			FailureRateThreshold: v.GetFloat64("cb.failure_rate_threshold"),
			SamplingDuration:     v.GetDuration("cb.sampling_duration"),
		},
		RateLimit: RateLimit{
			Strategy:    v.GetString("ratelimit.strategy"),
			MaxRequests: v.GetInt("ratelimit.max_requests"),
			TimeWindow:  v.GetDuration("ratelimit.time_window"),
			BurstSize:   v.GetInt("ratelimit.burst_size"),
			PerKey:      v.GetBool("ratelimit.per_key"),
		},
		Cache: Cache{
			Enabled:              v.GetBool("cache.enabled"),
			DefaultTTL:           v.GetDuration("cache.default_ttl"),
			CacheableStatusCodes: v.GetIntSlice("cache.cacheable_status_codes"),
			MaxEntries:           v.GetInt("cache.max_entries"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the client cannot operate
// with.
func (c Config) Validate() error {
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1 (got %d)", c.Retry.MaxAttempts)
	}
	if c.Retry.BackoffFactor < 0 {
		return fmt.Errorf("retry.backoff_factor must be >= 0 (got %v)", c.Retry.BackoffFactor)
	}
	if c.Retry.BackoffMax < c.Retry.BackoffFactor {
		return fmt.Errorf("retry.backoff_max %v must be >= retry.backoff_factor %v",
			c.Retry.BackoffMax, c.Retry.BackoffFactor)
	}
	if c.CircuitBreaker.FailureThreshold < 1 {
		return fmt.Errorf("cb.failure_threshold must be >= 1 (got %d)", c.CircuitBreaker.FailureThreshold)
	}
	if c.CircuitBreaker.SuccessThreshold < 1 {
		return fmt.Errorf("cb.success_threshold must be >= 1 (got %d)", c.CircuitBreaker.SuccessThreshold)
	}
	if c.CircuitBreaker.HalfOpenMaxCalls < 1 {
		return fmt.Errorf("cb.half_open_max_calls must be >= 1 (got %d)", c.CircuitBreaker.HalfOpenMaxCalls)
	}
	if c.RateLimit.MaxRequests < 1 {
		return fmt.Errorf("ratelimit.max_requests must be >= 1 (got %d)", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.TimeWindow <= 0 {
		return fmt.Errorf("ratelimit.time_window must be > 0 (got %v)", c.RateLimit.TimeWindow)
	}
	if c.Cache.Enabled && c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("cache.default_ttl must be > 0 when the cache is enabled (got %v)", c.Cache.DefaultTTL)
	}
	return nil
}
