package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{
			name:     "burst allows initial requests",
			rps:      1,
			burst:    3,
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst blocks",
			rps:      1,
			burst:    2,
			calls:    5,
			wantPass: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst, 0)
			defer rl.Stop()

			passed := 0
			for range tt.calls {
				if rl.Allow("operator") {
					passed++
				}
			}

			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl := New(1, 1, 0)
	defer rl.Stop()

	rl.Allow("key1")
	assert.False(t, rl.Allow("key1"), "key1 should be exhausted")
	assert.True(t, rl.Allow("key2"), "key2 should be independent")
	assert.Equal(t, 2, rl.Len())
}

func TestKeyedRateLimiter_EvictIdle(t *testing.T) {
	rl := New(1, 1, time.Minute)
	defer rl.Stop()

	now := time.Date(2026, 3, 14, 5, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("stale")
	now = now.Add(50 * time.Second)
	rl.Allow("fresh")

	now = now.Add(30 * time.Second)
	rl.evictIdle()

	assert.Equal(t, 1, rl.Len())
	assert.True(t, rl.Allow("stale"), "evicted key starts with a full bucket")
}

func TestKeyedRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(1, 1, time.Millisecond)
	rl.Stop()
	rl.Stop()
}
