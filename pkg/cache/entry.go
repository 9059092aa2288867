// Package cache stores successful idempotent responses so repeated GET and
// HEAD requests can be answered without touching the network. Two backends
// are provided: an in-process LRU and a Redis-backed store for sharing
// entries between processes.
package cache

import (
	"net/http"
	"time"
)

// Entry is a cached HTTP response.
type Entry struct {
	// Data is the response body.
	Data []byte `json:"data"`

	// StatusCode is the HTTP status code of the cached response.
	StatusCode int `json:"status_code"`

	// Headers are the response headers.
	Headers http.Header `json:"headers"`

	// CachedAt is when the response was stored.
	CachedAt time.Time `json:"cached_at"`

	// ExpiresAt is when the entry becomes stale.
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true once the entry is stale.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// TTL returns the remaining time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}
