package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRateLimiter_AllowsUpToLimit(t *testing.T) {
	rl := NewInMemoryRateLimiter(DefaultAuthAttemptsRule())
	defer rl.Stop()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := rl.Allow(ctx, "auth_attempts", "ip", "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d should be allowed", i+1)
	}

	allowed, err := rl.Allow(ctx, "auth_attempts", "ip", "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, allowed, "6th attempt within the window must be denied")
}

func TestInMemoryRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewInMemoryRateLimiter(DefaultAuthAttemptsRule())
	defer rl.Stop()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := rl.Allow(ctx, "auth_attempts", "ip", "203.0.113.7")
		require.NoError(t, err)
	}
	allowed, err := rl.Allow(ctx, "auth_attempts", "ip", "198.51.100.1")
	require.NoError(t, err)
	assert.True(t, allowed, "a different key must have its own bucket")
}

func TestInMemoryRateLimiter_UnconfiguredRuleAlwaysAllows(t *testing.T) {
	rl := NewInMemoryRateLimiter()
	defer rl.Stop()
	ctx := context.Background()

	allowed, err := rl.Allow(ctx, "unconfigured_rule", "ip", "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, allowed)
}
