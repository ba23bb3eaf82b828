package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageTracker_RecordAccumulatesAndChecksLimit(t *testing.T) {
	tracker := NewUsageTracker(1000)

	tracker.Record(UsageRecord{Provider: "openai", Model: "gpt-4o-mini", Usage: Usage{InputTokens: 400, OutputTokens: 200}, CostUSD: 0.01, Timestamp: time.Now()})
	ok, _ := tracker.CheckLimit()
	assert.True(t, ok)

	tracker.Record(UsageRecord{Provider: "openai", Model: "gpt-4o-mini", Usage: Usage{InputTokens: 300, OutputTokens: 200}, CostUSD: 0.01, Timestamp: time.Now()})
	ok, reason := tracker.CheckLimit()
	assert.False(t, ok)
	assert.NotEmpty(t, reason)

	snap := tracker.Snapshot()
	assert.Equal(t, int64(1100), snap.TokensUsedToday)
	assert.Equal(t, 2, snap.CallCount)
}

func TestUsageTracker_ZeroBudgetNeverLimits(t *testing.T) {
	tracker := NewUsageTracker(0)
	tracker.Record(UsageRecord{Usage: Usage{InputTokens: 1_000_000}, Timestamp: time.Now()})
	ok, _ := tracker.CheckLimit()
	assert.True(t, ok)
}

func TestUsageTracker_ByProviderBreakdown(t *testing.T) {
	tracker := NewUsageTracker(0)
	tracker.Record(UsageRecord{Provider: "anthropic", Usage: Usage{InputTokens: 100}, CostUSD: 0.5, Timestamp: time.Now()})
	tracker.Record(UsageRecord{Provider: "anthropic", Usage: Usage{InputTokens: 50}, CostUSD: 0.25, Timestamp: time.Now()})

	snap := tracker.Snapshot()
	ps, ok := snap.ByProvider["anthropic"]
	require.True(t, ok)
	assert.Equal(t, 2, ps.CallCount)
	assert.InDelta(t, 0.75, ps.CostUSD, 1e-9)
}
