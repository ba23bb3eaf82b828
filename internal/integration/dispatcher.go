package integration

import "context"

// OutboundDispatcher is the Extension Hook Engine's signed-webhook
// delivery surface (spec §4.7), referenced here as a local interface so
// this package never imports internal/extension — it only needs to fire
// a named point, not the engine's registration/priority machinery.
type OutboundDispatcher interface {
	Fire(ctx context.Context, point string, payload interface{})
}

// NoopDispatcher discards every event, used when no extension webhooks
// are configured.
type NoopDispatcher struct{}

func (NoopDispatcher) Fire(context.Context, string, interface{}) {}

var _ OutboundDispatcher = NoopDispatcher{}
