package extension

import "context"

// IntegrationDispatcher adapts an Engine to the Integration Router's
// OutboundDispatcher seam (internal/integration.OutboundDispatcher), so
// the router's "fire message.inbound on the outbound webhook dispatcher"
// step (spec §4.6 step 2) runs through this engine's own emit() pipeline
// at PointMessage rather than duplicating webhook-delivery logic in two
// packages.
type IntegrationDispatcher struct {
	engine *Engine
}

func NewIntegrationDispatcher(engine *Engine) *IntegrationDispatcher {
	return &IntegrationDispatcher{engine: engine}
}

func (d *IntegrationDispatcher) Fire(ctx context.Context, point string, payload interface{}) {
	d.engine.Emit(ctx, PointMessage, point, payload, "")
}
