// Package extension implements the Extension Hook Engine (spec §4.7):
// prioritized in-process observe/transform/veto dispatch, plus signed
// outbound webhook delivery to externally registered listeners.
// Dispatch is grounded on spec §4.7's emit() algorithm directly (the
// teacher pack has no equivalent prioritized-hook-chain primitive);
// outbound delivery is grounded on orchestration/hitl_webhook_handler.go's
// doNotify/doNotifyWithRetry shape, and signing reuses the audit chain's
// own HMAC-SHA256 sign/verify pattern (internal/audit/chain.go).
package extension

import "time"

// Point is one of the enumerated hook points a handler can register for
// (spec §4.7 "system/task/memory/message/ai/security/agent/proactive/
// multimodal").
type Point string

const (
	PointSystem     Point = "system"
	PointTask       Point = "task"
	PointMemory     Point = "memory"
	PointMessage    Point = "message"
	PointAI         Point = "ai"
	PointSecurity   Point = "security"
	PointAgent      Point = "agent"
	PointProactive  Point = "proactive"
	PointMultimodal Point = "multimodal"
)

// Semantics controls how a handler's return value affects the dispatch
// loop (spec §4.7 step 3).
type Semantics string

const (
	SemanticsObserve   Semantics = "observe"
	SemanticsTransform Semantics = "transform"
	SemanticsVeto      Semantics = "veto"
)

// Context is what emit() passes to every handler at a point; Data starts
// as the caller-supplied payload and is replaced by transform handlers.
type Context struct {
	Point         Point
	Event         string
	Data          interface{}
	CorrelationID string
}

// Result is a handler's response to being invoked.
type Result struct {
	Vetoed       bool
	Transformed  interface{}
	HasTransform bool
	Err          error
}

// HandlerFunc is one registered hook's logic.
type HandlerFunc func(ctx Context) Result

// Registration is the metadata recorded alongside a handler (spec §4.7
// "registerHook(point, handler, {priority, semantics, extensionId})").
type Registration struct {
	ID          string
	Point       Point
	Priority    int
	Semantics   Semantics
	ExtensionID string
	Handler     HandlerFunc
}

// EmitOutcome is what emit() returns to its caller (spec §4.7 "emit(point,
// context) → {vetoed, transformed?, errors}").
type EmitOutcome struct {
	Vetoed       bool
	Transformed  interface{}
	HasTransform bool
	Errors       []HandlerError
}

// HandlerError records one handler's failure without aborting the loop.
type HandlerError struct {
	RegistrationID string
	ExtensionID    string
	Err            error
}

// Webhook is an externally registered outbound listener (spec §4.7
// "Outbound webhooks").
type Webhook struct {
	ID         string
	URL        string
	Secret     string
	HookPoints []Point
	Enabled    bool
}

func (w Webhook) listensTo(p Point) bool {
	if !w.Enabled {
		return false
	}
	for _, hp := range w.HookPoints {
		if hp == p {
			return true
		}
	}
	return false
}

// webhookPayload is the JSON body POSTed to every matching webhook (spec
// §4.7 "{hookPoint, event, data, timestamp}").
type webhookPayload struct {
	HookPoint Point       `json:"hookPoint"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
