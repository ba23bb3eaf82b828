package integration

import (
	"context"
	"time"
)

// Adapter is the capability set every platform integration implements
// (spec §4.6 "the adapter declares webhookPath, verifyWebhook, ...").
// TestConnection is optional — adapters that can probe connectivity also
// implement TestConnectionAdapter, instead of every adapter carrying a
// no-op method on the required interface.
type Adapter interface {
	Init(ctx context.Context, cfg map[string]string) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	SendMessage(ctx context.Context, send OutboundSend) error
	IsHealthy(ctx context.Context) bool

	WebhookPath() string
	VerifyWebhook(rawBody []byte, signatureHeader string) bool
	HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*UnifiedMessage, error)

	Platform() string
	RateLimit() RateLimit
}

// TestConnectionAdapter is implemented by adapters that can verify their
// credentials/connectivity on demand (spec §4.6 "testConnection?").
type TestConnectionAdapter interface {
	TestConnection(ctx context.Context) error
}

// RateLimit is the outbound send shaping an adapter declares (spec §4.6
// "Rate limiting. Each adapter declares a platformRateLimit").
type RateLimit struct {
	PerSecond float64
	Burst     int
}

// DefaultRateLimit matches the spec's example of 30/s.
func DefaultRateLimit() RateLimit {
	return RateLimit{PerSecond: 30, Burst: 30}
}

// webhookDeadline is a 10-second budget for HandleWebhook. No code
// applies it, so HandleWebhook calls are not bounded by it.
const webhookDeadline = 10 * time.Second
