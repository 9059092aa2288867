package restclient

import (
	"net/http"

	"github.com/kettelby/go-rest-client/pkg/cache"
)

// Option customizes a Client beyond its configuration.
type Option func(*Client)

// WithMiddleware appends middleware to the chain in declaration order.
// The chain is fixed once New returns.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithCacheBackend installs a cache backend, replacing the in-memory
// default. A backend set this way enables caching even when the
// configuration left it disabled.
func WithCacheBackend(backend cache.Backend) Option {
	return func(c *Client) {
		c.cacheBackend = backend
	}
}

// WithHTTPClient replaces the transport-level HTTP client, for tests or
// custom transport configuration. The caller keeps responsibility for its
// timeout settings.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBreakerExcluded installs the predicate for errors that must never
// alter circuit breaker state. Excluded errors are still surfaced to the
// caller.
func WithBreakerExcluded(excluded func(error) bool) Option {
	return func(c *Client) {
		c.breakerExcluded = excluded
	}
}
