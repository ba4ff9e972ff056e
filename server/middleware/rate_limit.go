// Package middleware provides HTTP middleware shared by the API surface.
package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter provides per-key request rate limiting. Stale limiters are
// evicted on a sweep so the map does not grow with one-off callers.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[string]*entry
	rps     rate.Limit
	burst   int
	maxIdle time.Duration
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter allowing rps requests per second
// per key with the given burst.
func NewRateLimiter(rps int, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = rps * 2
	}
	return &RateLimiter{
		limits:  make(map[string]*entry),
		rps:     rate.Limit(rps),
		burst:   burst,
		maxIdle: 10 * time.Minute,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if e, ok := rl.limits[key]; ok {
		e.lastSeen = time.Now()
		return e.limiter
	}
	e := &entry{
		limiter:  rate.NewLimiter(rl.rps, rl.burst),
		lastSeen: time.Now(),
	}
	rl.limits[key] = e
	return e.limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Wait blocks until a request is allowed or the context is canceled.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.getLimiter(key).Wait(ctx)
}

// Sweep drops limiters idle longer than the retention window. Run by the
// process supervisor on a schedule.
func (rl *RateLimiter) Sweep() int {
	cutoff := time.Now().Add(-rl.maxIdle)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for key, e := range rl.limits {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limits, key)
			removed++
		}
	}
	return removed
}
