package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCost_KnownModel(t *testing.T) {
	cost := CalculateCost(ProviderAnthropic, "claude-haiku-3-5-20241022", Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000})
	assert.InDelta(t, 0.8+4, cost, 1e-9)
}

func TestCalculateCost_UnknownModelIsZero(t *testing.T) {
	cost := CalculateCost(ProviderOpenAI, "not-a-real-model", Usage{InputTokens: 1000})
	assert.Equal(t, 0.0, cost)
}

func TestCalculateCost_LocalProviderIsFree(t *testing.T) {
	cost := CalculateCost(ProviderOllama, "llama3.1", Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000})
	assert.Equal(t, 0.0, cost)
}
