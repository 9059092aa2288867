package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a cache backend storing entries in Redis, letting multiple
// client processes share one response cache.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis cache backend.
func NewRedis(client *redis.Client) *Redis {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &Redis{client: client}
}

// Get retrieves the entry for key. Returns ErrCacheMiss if the key is
// absent or the stored entry has expired.
func (r *Redis) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := r.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			Misses.Inc()
			return nil, ErrCacheMiss
		}
		Errors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		Errors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = r.Delete(ctx, key)
		Misses.Inc()
		return nil, ErrCacheMiss
	}

	Hits.WithLabelValues("redis").Inc()
	return &entry, nil
}

// Set stores entry under key with the given TTL. Redis expires the key
// itself; ExpiresAt is kept in the payload for cross-backend consistency.
func (r *Redis) Set(ctx context.Context, key Key, entry *Entry, ttl time.Duration) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	} else {
		ttl = entry.TTL()
	}
	if ttl <= 0 {
		// Already expired, don't cache.
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		Errors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := r.client.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		Errors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes the entry for key.
func (r *Redis) Delete(ctx context.Context, key Key) error {
	if err := r.client.Del(ctx, key.String()).Err(); err != nil {
		Errors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
