package ai

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/obs"
)

// RetryPolicy bounds the Gateway's retries (attempt count and backoff
// delays), replacing the teacher's hand-rolled sine-jitter loop in
// resilience/retry.go with backoff/v5's exponential-backoff-with-jitter
// implementation. Which error Kinds are retried is decided by
// apperrors.Retriable, not by the policy.
type RetryPolicy struct {
	MaxAttempts  uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy mirrors the teacher's DefaultRetryConfig values.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// Gateway is the single entry point spec §4.4 calls the "AI Gateway": it
// dispatches chat requests to the routed provider, retries transient
// failures, tracks usage, and enforces the daily token budget.
type Gateway struct {
	providers map[ProviderName]Provider
	router    *Router
	tracker   *UsageTracker
	retry     RetryPolicy
	logger    obs.Logger

	mu           sync.Mutex
	defaultModel string
}

// NewGateway wires providers (by name) behind a Router and UsageTracker.
func NewGateway(providers map[ProviderName]Provider, router *Router, tracker *UsageTracker, retry RetryPolicy, logger obs.Logger) *Gateway {
	if logger == nil {
		logger = obs.NoOpLogger{}
	}
	return &Gateway{providers: providers, router: router, tracker: tracker, retry: retry, logger: logger.WithComponent("ai.gateway")}
}

// Dispatch routes req by prompt/context, enforces the daily budget,
// invokes the provider with retry/backoff, and records usage before
// returning.
func (g *Gateway) Dispatch(ctx context.Context, req ChatRequest, route RouteRequest) (*ChatResponse, *Decision, error) {
	if route.ForcedModel == "" {
		route.ForcedModel = g.DefaultModel()
	}
	decision := g.router.Route(route)
	if decision.Model == "" {
		return nil, &decision, apperrors.Newf(apperrors.KindInvalidResponse, "router found no qualifying model for task profile %+v", decision.TaskProfile)
	}
	req.Model = decision.Model

	provider, ok := g.providers[decision.Provider]
	if !ok {
		return nil, &decision, apperrors.Newf(apperrors.KindProviderUnavailable, "no provider configured for %q", decision.Provider)
	}

	if g.tracker != nil {
		if ok, reason := g.tracker.CheckLimit(); !ok {
			return nil, &decision, apperrors.Newf(apperrors.KindRateLimited, "daily token budget exceeded: %s", reason)
		}
	}

	start := time.Now()
	resp, err := g.callWithRetry(ctx, provider, req)
	latency := time.Since(start)

	if err != nil {
		if g.tracker != nil {
			g.tracker.RecordError()
		}
		g.logger.Warn("ai dispatch failed", obs.Fields{"provider": string(decision.Provider), "model": decision.Model, "error": err.Error()})
		return nil, &decision, err
	}

	if g.tracker != nil {
		cost := CalculateCost(decision.Provider, decision.Model, resp.Usage)
		g.tracker.Record(UsageRecord{
			Provider: string(decision.Provider), Model: decision.Model, Usage: resp.Usage,
			CostUSD: cost, LatencyMS: latency.Milliseconds(), Timestamp: time.Now(),
		})
	}
	return resp, &decision, nil
}

func (g *Gateway) callWithRetry(ctx context.Context, provider Provider, req ChatRequest) (*ChatResponse, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.retry.InitialDelay
	b.MaxInterval = g.retry.MaxDelay

	op := func() (*ChatResponse, error) {
		resp, err := provider.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		if apperrors.Retriable(apperrors.KindOf(err)) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	maxAttempts := g.retry.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	return backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(maxAttempts))
}

// UsageSnapshot exposes the tracker's current usage for the
// /model/info and /model/cost-recommendations endpoints (spec §6).
func (g *Gateway) UsageSnapshot() Snapshot {
	if g.tracker == nil {
		return Snapshot{}
	}
	return g.tracker.Snapshot()
}

// Models lists every model name reachable through the configured
// providers, in the order the Router was constructed with.
func (g *Gateway) Models() []string {
	return g.router.available
}

// RouteDecision previews the routing decision for req without dispatching
// a call, used by /model/switch to validate a requested override.
func (g *Gateway) RouteDecision(req RouteRequest) Decision {
	return g.router.Route(req)
}

// HasModel reports whether model is reachable through any configured
// provider.
func (g *Gateway) HasModel(model string) bool {
	for _, m := range g.router.available {
		if m == model {
			return true
		}
	}
	return false
}

// SetDefaultModel overrides the model Dispatch routes to when a caller's
// RouteRequest doesn't already set its own ForcedModel (/model/switch,
// /model/default, spec §6). Pass "" to clear the override and fall back to
// the router's usual task-complexity classification.
func (g *Gateway) SetDefaultModel(model string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.defaultModel = model
}

// DefaultModel returns the current process-lifetime override, or "" if
// none is set.
func (g *Gateway) DefaultModel() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.defaultModel
}
