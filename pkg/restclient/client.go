// Package restclient provides a resilient HTTP client. Every request runs
// through a fixed pipeline: client-side rate limiting, response cache
// lookup for idempotent methods, a user-supplied middleware chain, and a
// retry loop whose attempts are gated by a circuit breaker and classified
// into a typed error taxonomy.
package restclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kettelby/go-rest-client/pkg/breaker"
	"github.com/kettelby/go-rest-client/pkg/cache"
	"github.com/kettelby/go-rest-client/pkg/config"
	"github.com/kettelby/go-rest-client/pkg/logging"
	"github.com/kettelby/go-rest-client/pkg/ratelimit"
)

// Client is a resilient HTTP client. One instance serves concurrent
// callers; the breaker, rate limiter, and cache are shared across all
// requests made through it. Configuration is immutable after New.
type Client struct {
	baseURL *url.URL
	headers http.Header

	httpClient *http.Client
	retry      retryPolicy
	breaker    *breaker.Breaker
	limiter    *ratelimit.Limiter

	cacheBackend      cache.Backend
	cacheTTL          time.Duration
	cacheableStatuses map[int]struct{}

	middleware      []Middleware
	breakerExcluded func(error) bool

	logger zerolog.Logger
}

// New creates a client from cfg. Options are applied before the internal
// components are built, so WithBreakerExcluded and WithCacheBackend affect
// construction.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Kind: KindConfiguration, Message: "invalid configuration", Cause: err}
	}

	var base *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, &Error{Kind: KindConfiguration, Message: "invalid base URL", Cause: err}
		}
		base = u
	}

	headers := make(http.Header, len(cfg.Headers))
	for name, value := range cfg.Headers {
		headers.Set(name, value)
	}

	c := &Client{
		baseURL:    base,
		headers:    headers,
		httpClient: newHTTPClient(cfg.Timeout),
		retry:      newRetryPolicy(cfg.Retry),
		cacheTTL:   cfg.Cache.DefaultTTL,
		logger:     logging.NewLogger("rest-client"),
	}

	c.limiter = ratelimit.New(ratelimit.Config{
		Strategy:    cfg.RateLimit.Strategy,
		MaxRequests: cfg.RateLimit.MaxRequests,
		TimeWindow:  cfg.RateLimit.TimeWindow,
		BurstSize:   cfg.RateLimit.BurstSize,
		PerKey:      cfg.RateLimit.PerKey,
	})

	c.cacheableStatuses = make(map[int]struct{}, len(cfg.Cache.CacheableStatusCodes))
	for _, code := range cfg.Cache.CacheableStatusCodes {
		c.cacheableStatuses[code] = struct{}{}
	}

	if cfg.Cache.Enabled {
		c.cacheBackend = cache.NewMemory(cfg.Cache.MaxEntries)
	}

	for _, opt := range opts {
		opt(c)
	}

	userExcluded := c.breakerExcluded
	c.breaker = breaker.New(breaker.Config{
		FailureThreshold:    cfg.CircuitBreaker.FailureThreshold,
		SuccessThreshold:    cfg.CircuitBreaker.SuccessThreshold,
		ResetTimeout:        cfg.CircuitBreaker.ResetTimeout,
		HalfOpenMaxCalls:    cfg.CircuitBreaker.HalfOpenMaxCalls,
		IncludedStatusCodes: cfg.CircuitBreaker.IncludedStatusCodes,
		Excluded: func(err error) bool {
			// Caller cancellation says nothing about origin health.
			if errors.Is(err, context.Canceled) {
				return true
			}
			return userExcluded != nil && userExcluded(err)
		},
		FailureRateThreshold: cfg.CircuitBreaker.FailureRateThreshold,
		SamplingDuration:     cfg.CircuitBreaker.SamplingDuration,
	})

	return c, nil
}

// newHTTPClient builds the default transport from the timeout
// configuration. The connect timeout applies to dialing, the read timeout
// to waiting for response headers, and the pool timeout to idle
// connections. The write timeout is folded into the overall request
// deadline together with the read timeout.
func newHTTPClient(t config.Timeout) *http.Client {
	return &http.Client{
		Timeout: t.Read + t.Write,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: t.Connect,
			}).DialContext,
			ResponseHeaderTimeout: t.Read,
			TLSHandshakeTimeout:   t.Connect,
			IdleConnTimeout:       t.Pool,
			MaxIdleConns:          100,
		},
	}
}

// Breaker exposes the circuit breaker for administrative overrides
// (ForceOpen, ForceClose, Reset) and state inspection.
func (c *Client) Breaker() *breaker.Breaker {
	return c.breaker
}

// Close releases idle transport connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Do executes a prepared request through the full pipeline: rate limiter
// admission, cache lookup for idempotent methods, the middleware chain,
// and the breaker-gated retry loop. The request context governs
// cancellation of the transport call and of retry backoff waits.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	endpoint := req.URL.Path
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	// Step 1: client-side admission. A rejection here never reaches the
	// network and is not retried.
	if !c.limiter.Allow(req.URL.Host) {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request rejected by client-side rate limiter")
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, &Error{
			Kind:    KindRateLimited,
			Message: "client-side rate limit exceeded",
			Method:  req.Method,
			URL:     req.URL.String(),
		}
	}

	// Step 2: cache lookup, idempotent methods only.
	var key cache.Key
	useCache := c.cacheBackend != nil && isIdempotent(req.Method)
	if useCache {
		key = cache.NewKey(req.Method, req.URL)
		entry, err := c.cacheBackend.Get(req.Context(), key)
		if err == nil {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Str("cache_key", key.String()).
				Msg("Cache hit")
			requestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			return cache.EntryToResponse(entry), nil
		}
		if err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// Steps 3-4: middleware chain with the retry loop as its terminal
	// handler.
	ch := newChain(c.middleware, func(r *http.Request) (*http.Response, error) {
		return c.doWithRetry(r, key, useCache)
	})
	return ch.dispatch(req)
}

// doWithRetry runs the breaker-gated attempt loop. Each attempt checks
// breaker admission first; an open breaker is terminal for the whole call
// and consumes no attempt. Otherwise the outcome of the transport call is
// classified, reported to the breaker, cached when eligible, and either
// retried or surfaced unchanged.
func (c *Client) doWithRetry(req *http.Request, key cache.Key, storeable bool) (*http.Response, error) {
	endpoint := req.URL.Path
	var lastErr error

	for attempt := 1; attempt <= c.retry.maxAttempts; attempt++ {
		if attempt > 1 {
			wait := c.retry.backoff(attempt)
			retriesTotal.WithLabelValues(endpoint).Inc()
			c.logger.Debug().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Dur("backoff", wait).
				Msg("Retrying request after backoff")

			select {
			case <-req.Context().Done():
				c.logger.Warn().
					Str("endpoint", endpoint).
					Int("attempt", attempt).
					Msg("Context cancelled during retry backoff")
				return nil, fmt.Errorf("%w: %v", ErrBackoffInterrupted, req.Context().Err())
			case <-time.After(wait):
			}
		}

		// Body replay is validated before breaker admission so that every
		// reserved half-open trial slot is matched by an outcome report.
		attemptReq, err := attemptRequest(req, attempt)
		if err != nil {
			return nil, err
		}

		if !c.breaker.Allow() {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Msg("Circuit breaker open - failing fast")
			requestsTotal.WithLabelValues(endpoint, "circuit_open").Inc()
			errorsTotal.WithLabelValues(string(KindCircuitOpen)).Inc()
			return nil, &Error{
				Kind:    KindCircuitOpen,
				Message: "circuit breaker is open",
				Method:  req.Method,
				URL:     req.URL.String(),
			}
		}

		resp, err := c.httpClient.Do(attemptReq)
		if err != nil {
			cerr := classifyTransport(attemptReq, err)
			c.breaker.RecordFailure(cerr)
			errorsTotal.WithLabelValues(string(cerr.Kind)).Inc()
			requestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
			c.logger.Error().
				Err(err).
				Str("endpoint", endpoint).
				Str("kind", string(cerr.Kind)).
				Msg("Transport call failed")

			lastErr = cerr
			if !c.retry.retryable(cerr) {
				return nil, cerr
			}
			continue
		}

		if resp.StatusCode >= 400 {
			cerr := classifyResponse(attemptReq, resp)
			resp.Body.Close()

			// The breaker applies the included-status rule itself: a
			// failing status outside the configured set is recorded as a
			// breaker success.
			c.breaker.RecordFailure(cerr)
			errorsTotal.WithLabelValues(string(cerr.Kind)).Inc()
			requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("kind", string(cerr.Kind)).
				Msg("Request returned error status")

			lastErr = cerr
			if !c.retry.retryable(cerr) {
				return nil, cerr
			}
			continue
		}

		c.breaker.RecordSuccess()
		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if storeable && c.cacheableStatus(resp.StatusCode) {
			if entry, err := cache.ResponseToEntry(resp, c.cacheTTL); err != nil {
				c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to build cache entry")
			} else if err := c.cacheBackend.Set(req.Context(), key, entry, c.cacheTTL); err != nil {
				c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Str("cache_key", key.String()).
					Dur("ttl", c.cacheTTL).
					Msg("Cached response")
			}
		}

		if attempt > 1 {
			c.logger.Info().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Msg("Request succeeded after retry")
		}
		return resp, nil
	}

	// All attempts exhausted: surface the last classified error unchanged.
	retryExhaustedTotal.WithLabelValues(endpoint).Inc()
	c.logger.Warn().
		Str("endpoint", endpoint).
		Int("max_attempts", c.retry.maxAttempts).
		Msg("Retry attempts exhausted")
	return nil, lastErr
}

func (c *Client) cacheableStatus(code int) bool {
	_, ok := c.cacheableStatuses[code]
	return ok
}

func isIdempotent(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return true
	}
	return false
}

// attemptRequest returns the request to send for the given attempt. The
// first attempt sends the original; later attempts clone it and rewind the
// body via GetBody.
func attemptRequest(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.Body == nil {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, &Error{
			Kind:    KindValidation,
			Message: "request body cannot be replayed for retry",
			Method:  req.Method,
			URL:     req.URL.String(),
		}
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, &Error{
			Kind:    KindValidation,
			Message: "rewinding request body failed",
			Method:  req.Method,
			URL:     req.URL.String(),
			Cause:   err,
		}
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

// RequestOptions carries per-request settings for the verb methods.
type RequestOptions struct {
	// Headers are added to the request after the client defaults.
	Headers http.Header

	// Query parameters are merged into the URL's query string.
	Query url.Values

	// Body is the request body. Use bytes.Reader or strings.Reader so
	// retries can rewind it.
	Body io.Reader

	// ContentType sets the Content-Type header when a body is present.
	ContentType string
}
