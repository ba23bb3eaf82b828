package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
)

type fakeProvider struct {
	name     ProviderName
	attempts int
	failN    int
	failKind apperrors.Kind
	resp     *ChatResponse
}

func (f *fakeProvider) Name() ProviderName { return f.name }

func (f *fakeProvider) Chat(_ context.Context, _ ChatRequest) (*ChatResponse, error) {
	f.attempts++
	if f.attempts <= f.failN {
		return nil, apperrors.Newf(f.failKind, "synthetic failure %d", f.attempts)
	}
	return f.resp, nil
}

func TestGateway_RetriesTransientFailureThenSucceeds(t *testing.T) {
	provider := &fakeProvider{
		name: ProviderOpenAI, failN: 1, failKind: apperrors.KindNetwork,
		resp: &ChatResponse{Content: "ok", Usage: Usage{InputTokens: 10, OutputTokens: 5}, FinishReason: FinishStop},
	}
	router := NewRouter([]string{"gpt-4o-mini"})
	tracker := NewUsageTracker(0)
	gw := NewGateway(map[ProviderName]Provider{ProviderOpenAI: provider}, router, tracker, RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}, nil)

	resp, decision, err := gw.Dispatch(context.Background(), ChatRequest{Messages: []Message{{Role: RoleUser, Content: "summarize this document"}}}, RouteRequest{Prompt: "summarize this document", TokenBudget: 10000})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, provider.attempts)
	assert.Equal(t, "gpt-4o-mini", decision.Model)

	snap := tracker.Snapshot()
	assert.Equal(t, 1, snap.CallCount)
}

func TestGateway_NonRetriableFailureStopsImmediately(t *testing.T) {
	provider := &fakeProvider{name: ProviderOpenAI, failN: 99, failKind: apperrors.KindAuthentication}
	router := NewRouter([]string{"gpt-4o-mini"})
	gw := NewGateway(map[ProviderName]Provider{ProviderOpenAI: provider}, router, nil, DefaultRetryPolicy(), nil)

	_, _, err := gw.Dispatch(context.Background(), ChatRequest{}, RouteRequest{Prompt: "summarize this document", TokenBudget: 10000})
	require.Error(t, err)
	assert.Equal(t, 1, provider.attempts)
}

func TestGateway_NoQualifyingModelErrorsBeforeCallingProvider(t *testing.T) {
	provider := &fakeProvider{name: ProviderOpenAI}
	router := NewRouter([]string{}) // nothing available
	gw := NewGateway(map[ProviderName]Provider{ProviderOpenAI: provider}, router, nil, DefaultRetryPolicy(), nil)

	_, _, err := gw.Dispatch(context.Background(), ChatRequest{}, RouteRequest{Prompt: "summarize this document", TokenBudget: 10000})
	require.Error(t, err)
	assert.Equal(t, 0, provider.attempts)
}

// TestGateway_DefaultModelOverridesClassification matches spec §6's
// /model/default: once set, Dispatch routes a simple prompt to the
// configured default rather than the tier it would otherwise classify to,
// for any caller that doesn't already set its own ForcedModel.
func TestGateway_DefaultModelOverridesClassification(t *testing.T) {
	provider := &fakeProvider{name: ProviderOpenAI, resp: &ChatResponse{Content: "ok"}}
	router := NewRouter([]string{"gpt-4o-mini", "gpt-4o"})
	gw := NewGateway(map[ProviderName]Provider{ProviderOpenAI: provider}, router, nil, DefaultRetryPolicy(), nil)

	_, decision, err := gw.Dispatch(context.Background(), ChatRequest{}, RouteRequest{Prompt: "summarize this document", TokenBudget: 10000})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", decision.Model)

	gw.SetDefaultModel("gpt-4o")
	_, decision, err = gw.Dispatch(context.Background(), ChatRequest{}, RouteRequest{Prompt: "summarize this document", TokenBudget: 10000})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", decision.Model)

	gw.SetDefaultModel("")
	_, decision, err = gw.Dispatch(context.Background(), ChatRequest{}, RouteRequest{Prompt: "summarize this document", TokenBudget: 10000})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", decision.Model)
}

func TestGateway_BudgetExceededBlocksDispatch(t *testing.T) {
	provider := &fakeProvider{name: ProviderOpenAI, resp: &ChatResponse{Content: "ok"}}
	router := NewRouter([]string{"gpt-4o-mini"})
	tracker := NewUsageTracker(10)
	tracker.Record(UsageRecord{Usage: Usage{InputTokens: 100}, Timestamp: time.Now()})
	gw := NewGateway(map[ProviderName]Provider{ProviderOpenAI: provider}, router, tracker, DefaultRetryPolicy(), nil)

	_, _, err := gw.Dispatch(context.Background(), ChatRequest{}, RouteRequest{Prompt: "summarize this document", TokenBudget: 10000})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindRateLimited, apperrors.KindOf(err))
	assert.Equal(t, 0, provider.attempts)
}
