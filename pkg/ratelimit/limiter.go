package ratelimit

import (
	"sync"
	"time"
)

// Config holds the rate limiter configuration.
type Config struct {
	// Strategy selects the limiting algorithm. Only "token_bucket" is
	// implemented; unknown values fall back to it.
	Strategy string

	// MaxRequests is the number of requests allowed per TimeWindow. It is
	// also the capacity of the global bucket, so a full window of requests
	// may be issued as an initial burst.
	MaxRequests int

	// TimeWindow is the window over which MaxRequests refill.
	TimeWindow time.Duration

	// BurstSize is the capacity of each per-key bucket.
	BurstSize int

	// PerKey enables independent per-key buckets (per host or endpoint)
	// in addition to the global bucket.
	PerKey bool
}

// DefaultConfig returns the default rate limiter configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:    "token_bucket",
		MaxRequests: 100,
		TimeWindow:  60 * time.Second,
		BurstSize:   10,
	}
}

// Limiter gates requests through a global token bucket and, when per-key
// limiting is enabled, an additional bucket per caller-supplied key. Both
// buckets must admit for a request to proceed.
type Limiter struct {
	cfg    Config
	rate   float64
	global *TokenBucket

	mu     sync.Mutex
	perKey map[string]*TokenBucket
}

// New creates a limiter from cfg. Zero fields fall back to the defaults.
func New(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.TimeWindow <= 0 {
		cfg.TimeWindow = def.TimeWindow
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = def.BurstSize
	}

	rate := float64(cfg.MaxRequests) / cfg.TimeWindow.Seconds()

	return &Limiter{
		cfg:    cfg,
		rate:   rate,
		global: NewTokenBucket(rate, cfg.MaxRequests),
		perKey: make(map[string]*TokenBucket),
	}
}

// Allow reports whether a request may proceed. The global bucket is always
// consulted; when per-key limiting is enabled and key is non-empty, the
// key's bucket must admit as well. An empty key checks only the global
// bucket.
func (l *Limiter) Allow(key string) bool {
	if !l.global.Allow() {
		rejectionsTotal.WithLabelValues("global").Inc()
		return false
	}
	tokensGauge.Set(l.global.Tokens())

	if !l.cfg.PerKey || key == "" {
		return true
	}

	if !l.bucketFor(key).Allow() {
		rejectionsTotal.WithLabelValues("key").Inc()
		return false
	}
	return true
}

// bucketFor returns the bucket for key, creating it on first use.
func (l *Limiter) bucketFor(key string) *TokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.perKey[key]
	if !ok {
		b = NewTokenBucket(l.rate, l.cfg.BurstSize)
		l.perKey[key] = b
	}
	return b
}
