package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/secureyeoman/secureyeoman/internal/audit"
	"github.com/secureyeoman/secureyeoman/internal/idgen"
	"github.com/secureyeoman/secureyeoman/internal/obs"
)

// Runtime is what a Handler receives alongside the task: its loop guard
// (to record tool calls and inject recovery prompts) and a recovery
// prompt slot the executor fills in when CheckStuck fires.
type Runtime struct {
	Guard          *LoopGuard
	RecoveryPrompt string
}

// Handler processes one task type, grounded on the teacher's
// core.TaskHandler signature generalized to carry the self-repair
// Runtime instead of a ProgressReporter.
type Handler func(ctx context.Context, t *Task, rt *Runtime) (result interface{}, err error)

// Config tunes the loop guard every submitted task gets.
type Config struct {
	StuckTimeout        time.Duration
	RepetitionThreshold int
}

// Executor is the Task Executor of spec §4.5.
type Executor struct {
	store    Store
	chain    *audit.Chain
	logger   obs.Logger
	cfg      Config
	handlers map[string]Handler

	mu         sync.Mutex
	active     map[string]*Runtime
	onComplete func(ctx context.Context, t *Task)
	wg         sync.WaitGroup
}

// NewExecutor wires a Store and audit Chain into a ready-to-use Executor.
func NewExecutor(store Store, chain *audit.Chain, logger obs.Logger, cfg Config) *Executor {
	if logger == nil {
		logger = obs.NoOpLogger{}
	}
	if cfg.StuckTimeout <= 0 {
		cfg.StuckTimeout = 30 * time.Second
	}
	if cfg.RepetitionThreshold <= 0 {
		cfg.RepetitionThreshold = 2
	}
	return &Executor{
		store: store, chain: chain, logger: logger.WithComponent("task.executor"),
		cfg: cfg, handlers: map[string]Handler{}, active: map[string]*Runtime{},
	}
}

// RegisterHandler wires the handler invoked for tasks of the given type.
func (e *Executor) RegisterHandler(taskType string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[taskType] = h
}

// OnComplete registers fn to be invoked once per task, with the final
// persisted Task, whenever a submitted task reaches a terminal state
// (completed or failed). The Integration Router uses this as its only
// signal that an asynchronously-run task has finished, since Submit
// returns the task while it is still queued.
func (e *Executor) OnComplete(fn func(ctx context.Context, t *Task)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = fn
}

func (e *Executor) notifyComplete(ctx context.Context, t *Task) {
	e.mu.Lock()
	fn := e.onComplete
	e.mu.Unlock()
	if fn != nil {
		fn(ctx, t)
	}
}

// Submit persists a new task, records task_submitted, and schedules
// background execution (spec §4.5 "Executor").
func (e *Executor) Submit(ctx context.Context, t *Task, execCtx ExecutionContext) (*Task, error) {
	now := time.Now()
	t.ID = idgen.New()
	t.Status = StatusQueued
	t.UserID = execCtx.UserID
	t.Role = execCtx.Role
	t.CorrelationID = execCtx.CorrelationID
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := e.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("task: persist: %w", err)
	}

	if e.chain != nil {
		_, _ = e.chain.Record(ctx, audit.Event{
			Event: "task_submitted", Level: audit.LevelInfo,
			Message: fmt.Sprintf("task %s (%s) submitted", t.ID, t.Type),
			UserID:  execCtx.UserID, CorrelationID: execCtx.CorrelationID,
			Metadata: map[string]audit.MetaValue{"taskId": t.ID, "type": t.Type},
		})
	}

	e.wg.Add(1)
	go e.run(t.ID)

	return t, nil
}

// Cancel marks an active task cancelled; a task already in a terminal
// state cannot be cancelled.
func (e *Executor) Cancel(ctx context.Context, id string) error {
	t, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.Status.IsTerminal() {
		return fmt.Errorf("task: %s already in terminal state %s", id, t.Status)
	}
	now := time.Now()
	t.Status = StatusCancelled
	t.CompletedAt = &now
	t.UpdatedAt = now
	return e.store.Update(ctx, t)
}

// Get returns the current state of a task.
func (e *Executor) Get(ctx context.Context, id string) (*Task, error) {
	return e.store.Get(ctx, id)
}

func (e *Executor) run(id string) {
	defer e.wg.Done()
	ctx := context.Background()

	t, err := e.store.Get(ctx, id)
	if err != nil {
		e.logger.Error("task: could not load for execution", obs.Fields{"taskId": id, "error": err.Error()})
		return
	}

	handler, ok := e.handlers[t.Type]
	if !ok {
		e.fail(ctx, t, &Error{Code: ErrCodeInvalidInput, Message: fmt.Sprintf("no handler registered for task type %q", t.Type)})
		return
	}

	now := time.Now()
	t.Status = StatusRunning
	t.StartedAt = &now
	t.UpdatedAt = now
	if err := e.store.Update(ctx, t); err != nil {
		e.logger.Error("task: could not mark running", obs.Fields{"taskId": id, "error": err.Error()})
		return
	}

	rt := &Runtime{Guard: NewLoopGuard(e.cfg.StuckTimeout, e.cfg.RepetitionThreshold)}
	e.mu.Lock()
	e.active[id] = rt
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.active, id)
		e.mu.Unlock()
	}()

	result, err := e.invoke(ctx, handler, t, rt)
	if err != nil {
		e.fail(ctx, t, &Error{Code: ErrCodeHandlerError, Message: err.Error()})
		return
	}

	now = time.Now()
	t.Status = StatusCompleted
	t.Result = result
	t.History = rt.Guard.History()
	t.CompletedAt = &now
	t.UpdatedAt = now
	if err := e.store.Update(ctx, t); err != nil {
		e.logger.Error("task: could not persist completion", obs.Fields{"taskId": id, "error": err.Error()})
	}
	if e.chain != nil {
		_, _ = e.chain.Record(ctx, audit.Event{
			Event: "task_completed", Level: audit.LevelInfo,
			Message: fmt.Sprintf("task %s completed", id), UserID: t.UserID, CorrelationID: t.CorrelationID,
			Metadata: map[string]audit.MetaValue{"taskId": id},
		})
	}
	e.notifyComplete(ctx, t)
}

// invoke calls handler with panic recovery, translating a panic into a
// HANDLER_PANIC error the same way the teacher's worker does.
func (e *Executor) invoke(ctx context.Context, handler Handler, t *Task, rt *Runtime) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", ErrCodePanic, r)
		}
	}()
	return handler(ctx, t, rt)
}

func (e *Executor) fail(ctx context.Context, t *Task, taskErr *Error) {
	now := time.Now()
	t.Status = StatusFailed
	t.Err = taskErr
	t.CompletedAt = &now
	t.UpdatedAt = now
	if err := e.store.Update(ctx, t); err != nil {
		e.logger.Error("task: could not persist failure", obs.Fields{"taskId": t.ID, "error": err.Error()})
	}
	if e.chain != nil {
		_, _ = e.chain.Record(ctx, audit.Event{
			Event: "task_failed", Level: audit.LevelWarn,
			Message: fmt.Sprintf("task %s failed: %s", t.ID, taskErr.Message),
			UserID:  t.UserID, CorrelationID: t.CorrelationID,
			Metadata: map[string]audit.MetaValue{"taskId": t.ID, "code": taskErr.Code},
		})
	}
	e.notifyComplete(ctx, t)
}

// Wait blocks until every in-flight task goroutine has returned, for use
// in shutdown and tests.
func (e *Executor) Wait() {
	e.wg.Wait()
}
