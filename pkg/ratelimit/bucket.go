// Package ratelimit implements client-side token-bucket admission control.
// A Limiter gates every outbound request before any network activity; a
// rejection here never consumes a retry attempt or touches the transport.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a continuously refilling token bucket. Tokens are
// real-valued and always satisfy 0 <= tokens <= capacity. The bucket is
// safe for concurrent use; its lock is held only for the refill-and-consume
// bookkeeping.
type TokenBucket struct {
	mu sync.Mutex

	capacity   float64
	rate       float64 // tokens per second
	tokens     float64
	lastRefill time.Time

	now func() time.Time
}

// NewTokenBucket creates a full bucket refilling at rate tokens per second.
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	b := &TokenBucket{
		capacity: float64(capacity),
		rate:     rate,
		tokens:   float64(capacity),
		now:      time.Now,
	}
	b.lastRefill = b.now()
	return b
}

// Allow refills the bucket by the elapsed time and consumes one token if
// available. It returns false when the bucket is empty.
func (b *TokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Tokens returns the current token count after refilling.
func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	return b.tokens
}

func (b *TokenBucket) refill() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.rate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
	}
	b.lastRefill = now
}
