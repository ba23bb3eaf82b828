package extension

import (
	"context"
	"sort"
	"sync"

	"github.com/secureyeoman/secureyeoman/internal/idgen"
	"github.com/secureyeoman/secureyeoman/internal/obs"
)

// Engine holds every registered hook and the webhook dispatcher, and runs
// the emit() algorithm of spec §4.7.
type Engine struct {
	mu           sync.RWMutex
	byPoint      map[Point][]Registration
	webhooks     *WebhookDispatcher
	allowWebhook bool
	logger       obs.Logger
}

func NewEngine(webhooks *WebhookDispatcher, allowWebhooks bool, logger obs.Logger) *Engine {
	if logger == nil {
		logger = obs.NoOpLogger{}
	}
	return &Engine{
		byPoint:      make(map[Point][]Registration),
		webhooks:     webhooks,
		allowWebhook: allowWebhooks,
		logger:       logger.WithComponent("extension.engine"),
	}
}

// RegisterHook adds a handler at a point and returns its opaque id (spec
// §4.7 "registerHook"). Every call mints a fresh id and appends a new
// registration; it never replaces an existing placeholder, which is what
// ReplacePlaceholder does.
func (e *Engine) RegisterHook(point Point, handler HandlerFunc, priority int, semantics Semantics, extensionID string) string {
	id := idgen.New()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byPoint[point] = append(e.byPoint[point], Registration{
		ID: id, Point: point, Priority: priority, Semantics: semantics,
		ExtensionID: extensionID, Handler: handler,
	})
	sortByPriority(e.byPoint[point])
	return id
}

// ReplacePlaceholder swaps a placeholder registration's handler for a real
// one without changing its id, priority, or position (spec §4.7 "code-
// based registrations replace placeholders").
func (e *Engine) ReplacePlaceholder(id string, handler HandlerFunc) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for point, regs := range e.byPoint {
		for i := range regs {
			if regs[i].ID == id {
				e.byPoint[point][i].Handler = handler
				return true
			}
		}
	}
	return false
}

// Unregister removes a hook by id.
func (e *Engine) Unregister(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for point, regs := range e.byPoint {
		filtered := regs[:0]
		for _, r := range regs {
			if r.ID != id {
				filtered = append(filtered, r)
			}
		}
		e.byPoint[point] = filtered
	}
}

func sortByPriority(regs []Registration) {
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].Priority < regs[j].Priority })
}

// Emit runs the dispatch algorithm of spec §4.7 step by step: collect
// handlers sorted by ascending priority, thread a mutable payload through
// observe/transform/veto handlers, then fire outbound webhooks.
func (e *Engine) Emit(ctx context.Context, point Point, event string, data interface{}, correlationID string) EmitOutcome {
	e.mu.RLock()
	regs := make([]Registration, len(e.byPoint[point]))
	copy(regs, e.byPoint[point])
	e.mu.RUnlock()

	currentData := data
	outcome := EmitOutcome{}

	for _, reg := range regs {
		if reg.Handler == nil {
			continue // unmaterialized placeholder
		}
		result := e.invoke(reg, Context{Point: point, Event: event, Data: currentData, CorrelationID: correlationID})
		if result.Err != nil {
			outcome.Errors = append(outcome.Errors, HandlerError{RegistrationID: reg.ID, ExtensionID: reg.ExtensionID, Err: result.Err})
		}
		switch reg.Semantics {
		case SemanticsTransform:
			if result.HasTransform {
				currentData = result.Transformed
			}
		case SemanticsVeto:
			if result.Vetoed {
				outcome.Vetoed = true
				outcome.Transformed = currentData
				outcome.HasTransform = true
				e.dispatchWebhooks(ctx, point, event, currentData)
				return outcome
			}
		}
	}

	outcome.Transformed = currentData
	outcome.HasTransform = true
	e.dispatchWebhooks(ctx, point, event, currentData)
	return outcome
}

// invoke calls a handler and converts a panic into a recorded error, the
// way the Task Executor's invoke() contains handler panics (spec §4.7
// step 4 "any thrown error... is caught").
func (e *Engine) invoke(reg Registration, hookCtx Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Err: newPanicError(r)}
		}
	}()
	return reg.Handler(hookCtx)
}

func (e *Engine) dispatchWebhooks(ctx context.Context, point Point, event string, data interface{}) {
	if !e.allowWebhook || e.webhooks == nil {
		return
	}
	e.webhooks.DispatchAll(ctx, point, event, data)
}
