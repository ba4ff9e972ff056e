package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsBurstThenRefuses(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	assert.True(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("alice"))
	assert.False(t, rl.Allow("alice"))

	// Keys are independent.
	assert.True(t, rl.Allow("bob"))
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.maxIdle = time.Millisecond

	rl.Allow("stale")
	time.Sleep(5 * time.Millisecond)
	rl.Allow("fresh")

	removed := rl.Sweep()
	assert.Equal(t, 1, removed)

	rl.mu.Lock()
	_, stalePresent := rl.limits["stale"]
	_, freshPresent := rl.limits["fresh"]
	rl.mu.Unlock()
	assert.False(t, stalePresent)
	assert.True(t, freshPresent)
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	assert.True(t, rl.Allow("anyone"))
}
