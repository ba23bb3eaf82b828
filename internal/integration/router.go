package integration

import (
	"context"
	"fmt"
	"sync"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/obs"
	"github.com/secureyeoman/secureyeoman/internal/task"
)

// PersonalityResolver gives the router the one contract it needs from the
// Soul subsystem (spec §3 "the only contract the core needs").
type PersonalityResolver interface {
	ActivePersonality(ctx context.Context) (*ActivePersonality, error)
}

// Synthesizer is the multimodal manager's TTS surface (spec §4.6 step 8).
// Voice selection happens in the router; Synthesize just renders audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (audioBase64, audioFormat string, err error)
}

// Submitter is the subset of the Task Executor the router drives. OnComplete
// registers the callback the executor invokes once per task when it reaches
// a terminal state — the router's only way to observe an asynchronously
// completed task, since Submit itself returns before execution finishes.
type Submitter interface {
	Submit(ctx context.Context, t *task.Task, execCtx task.ExecutionContext) (*task.Task, error)
	OnComplete(fn func(ctx context.Context, t *task.Task))
}

const failureMessage = "I encountered an error processing your message."

// pendingDelivery is what HandleInbound stashes for a queued task so the
// eventual OnComplete callback knows where to relay the result.
type pendingDelivery struct {
	integrationID string
	msg           UnifiedMessage
}

// Router implements the Integration Router's inbound pipeline (spec §4.6).
type Router struct {
	store       Store
	adapters    map[string]Adapter
	dispatcher  OutboundDispatcher
	personality PersonalityResolver
	executor    Submitter
	synthesizer Synthesizer
	logger      obs.Logger
	limiters    *rateLimiters

	mu      sync.Mutex
	pending map[string]pendingDelivery
}

func NewRouter(store Store, dispatcher OutboundDispatcher, personality PersonalityResolver, executor Submitter, synthesizer Synthesizer, logger obs.Logger) *Router {
	if dispatcher == nil {
		dispatcher = NoopDispatcher{}
	}
	if logger == nil {
		logger = obs.NoOpLogger{}
	}
	r := &Router{
		store:       store,
		adapters:    make(map[string]Adapter),
		dispatcher:  dispatcher,
		personality: personality,
		executor:    executor,
		synthesizer: synthesizer,
		logger:      logger.WithComponent("integration.router"),
		limiters:    newRateLimiters(),
		pending:     make(map[string]pendingDelivery),
	}
	if executor != nil {
		executor.OnComplete(r.onTaskComplete)
	}
	return r
}

// RegisterAdapter makes an adapter available for outbound sends keyed by
// its integration id (distinct from platform, since two integrations can
// share a platform — e.g. two Slack workspaces).
func (r *Router) RegisterAdapter(integrationID string, a Adapter) {
	r.adapters[integrationID] = a
}

// HandleInbound runs the nine-step inbound flow (spec §4.6).
func (r *Router) HandleInbound(ctx context.Context, msg UnifiedMessage) {
	r.dispatcher.Fire(ctx, "message.inbound", msg)

	if err := r.store.SaveMessage(ctx, &msg); err != nil {
		r.logger.Warn("failed to persist inbound message", obs.Fields{"error": err.Error(), "integrationId": msg.IntegrationID})
	}

	if msg.Text == "" {
		return
	}

	active, err := r.resolveAllowedPersonality(ctx, msg)
	if err != nil {
		r.fail(ctx, msg, err)
		return
	}
	if active == nil {
		r.logger.Info("integration not selected by active personality, dropping", obs.Fields{"integrationId": msg.IntegrationID})
		return
	}

	execCtx := task.ExecutionContext{
		UserID:        fmt.Sprintf("%s:%s", msg.Platform, msg.SenderID),
		Role:          "operator",
		CorrelationID: msg.ID,
	}

	t := &task.Task{
		Type: "QUERY",
		Name: "integration query",
		Input: map[string]interface{}{
			"text":     msg.Text,
			"platform": msg.Platform,
		},
	}

	submitted, err := r.executor.Submit(ctx, t, execCtx)
	if err != nil {
		r.fail(ctx, msg, err)
		return
	}

	if submitted.Status == task.StatusCompleted {
		r.deliverSynchronous(ctx, msg, submitted, active)
		return
	}

	// The executor runs the handler in the background; stash enough to
	// relay the result once onTaskComplete fires for this task id.
	r.mu.Lock()
	r.pending[submitted.ID] = pendingDelivery{integrationID: msg.IntegrationID, msg: msg}
	r.mu.Unlock()
}

// onTaskComplete is registered with the executor via OnComplete and fires
// once a submitted task reaches a terminal state, relaying the result back
// through the originating integration (spec §4.6 step 8, async path).
func (r *Router) onTaskComplete(ctx context.Context, t *task.Task) {
	r.mu.Lock()
	pd, ok := r.pending[t.ID]
	if ok {
		delete(r.pending, t.ID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	if t.Status != task.StatusCompleted {
		r.fail(ctx, pd.msg, apperrors.Newf(apperrors.KindInternal, "task %s ended in status %s", t.ID, t.Status))
		return
	}
	r.DeliverResult(ctx, pd.integrationID, pd.msg, t)
}

// resolveAllowedPersonality returns the active personality, or nil if this
// integration is excluded by its selectedIntegrations allow-list.
func (r *Router) resolveAllowedPersonality(ctx context.Context, msg UnifiedMessage) (*ActivePersonality, error) {
	if r.personality == nil {
		return &ActivePersonality{}, nil
	}
	active, err := r.personality.ActivePersonality(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return &ActivePersonality{}, nil
	}
	if len(active.SelectedIntegrations) > 0 && !contains(active.SelectedIntegrations, msg.IntegrationID) {
		return nil, nil
	}
	return active, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// deliverSynchronous sends a fast-path result back through the originating
// adapter, optionally synthesizing TTS audio (spec §4.6 step 8).
func (r *Router) deliverSynchronous(ctx context.Context, msg UnifiedMessage, t *task.Task, active *ActivePersonality) {
	text := resultText(t)
	send := OutboundSend{
		TaskID:           t.ID,
		ChatID:           msg.ChatID,
		ReplyToMessageID: msg.PlatformMessageID,
		Text:             text,
	}
	if r.synthesizer != nil && active.Voice != "" {
		if audio, format, err := r.synthesizer.Synthesize(ctx, text, active.Voice); err == nil {
			send.AudioBase64 = audio
			send.AudioFormat = format
		} else {
			r.logger.Warn("tts synthesis failed", obs.Fields{"error": err.Error()})
		}
	}
	r.send(ctx, msg.IntegrationID, send)
}

// DeliverResult relays an asynchronously-completed task's result back
// through the originating integration (spec §4.6 step 8, async path).
func (r *Router) DeliverResult(ctx context.Context, integrationID string, msg UnifiedMessage, t *task.Task) {
	if t.Status != task.StatusCompleted {
		r.fail(ctx, msg, apperrors.Newf(apperrors.KindInternal, "task %s ended in status %s", t.ID, t.Status))
		return
	}
	r.send(ctx, integrationID, OutboundSend{
		TaskID:           t.ID,
		ChatID:           msg.ChatID,
		ReplyToMessageID: msg.PlatformMessageID,
		Text:             resultText(t),
	})
}

func (r *Router) send(ctx context.Context, integrationID string, send OutboundSend) {
	adapter, ok := r.adapters[integrationID]
	if !ok {
		r.logger.Warn("no adapter registered for integration", obs.Fields{"integrationId": integrationID})
		return
	}
	if err := r.limiters.wait(ctx, integrationID, adapter.RateLimit()); err != nil {
		r.logger.Warn("rate limiter wait failed", obs.Fields{"integrationId": integrationID, "error": err.Error()})
		return
	}
	if err := adapter.SendMessage(ctx, send); err != nil {
		r.logger.Warn("outbound send failed", obs.Fields{"integrationId": integrationID, "error": err.Error()})
	}
}

// fail sends the user a canned failure message and logs the real error
// as a warning; it records nothing to the audit chain (the detailed kind
// never reaches the user, spec §7 "User-visible failure behavior").
func (r *Router) fail(ctx context.Context, msg UnifiedMessage, cause error) {
	r.logger.Warn("integration inbound flow failed", obs.Fields{"integrationId": msg.IntegrationID, "error": cause.Error()})
	r.send(ctx, msg.IntegrationID, OutboundSend{
		ChatID:           msg.ChatID,
		ReplyToMessageID: msg.PlatformMessageID,
		Text:             failureMessage,
	})
}

func resultText(t *task.Task) string {
	if t.Result == nil {
		return ""
	}
	if s, ok := t.Result.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", t.Result)
}
