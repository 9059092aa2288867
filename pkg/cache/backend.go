package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found or has expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Backend is the storage contract for cached responses.
type Backend interface {
	// Get returns the entry for key, or ErrCacheMiss.
	Get(ctx context.Context, key Key) (*Entry, error)

	// Set stores entry under key for the given TTL.
	Set(ctx context.Context, key Key, entry *Entry, ttl time.Duration) error

	// Delete removes the entry for key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key Key) error
}
