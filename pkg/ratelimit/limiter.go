package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements the token bucket algorithm. It guards the forced
// JWKS refresh path and the login endpoints against bursts.
type TokenBucket struct {
	capacity   int
	tokens     float64
	refillRate float64 // tokens added per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a token bucket allowing bursts up to capacity and
// refilling at refillRate tokens per second.
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// PerMinute creates a token bucket allowing n operations per minute with a
// burst of n.
func PerMinute(n int) *TokenBucket {
	return &TokenBucket{
		capacity:   n,
		tokens:     float64(n),
		refillRate: float64(n) / 60.0,
		lastRefill: time.Now(),
	}
}

// Allow consumes one token if available and reports whether the operation
// may proceed.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Tokens returns the current number of available tokens.
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.tokens
}

// Keyed manages one token bucket per key, e.g. per client IP.
type Keyed struct {
	mu         sync.Mutex
	buckets    map[string]*TokenBucket
	capacity   int
	refillRate float64
}

// NewKeyed creates a keyed limiter; each key gets its own bucket with the
// given capacity and refill rate.
func NewKeyed(capacity int, refillRate float64) *Keyed {
	return &Keyed{
		buckets:    make(map[string]*TokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
	}
}

// Allow consumes one token from the bucket for key, creating the bucket on
// first use.
func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	bucket, ok := k.buckets[key]
	if !ok {
		bucket = NewTokenBucket(k.capacity, k.refillRate)
		k.buckets[key] = bucket
	}
	k.mu.Unlock()

	return bucket.Allow()
}
