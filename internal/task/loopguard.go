package task

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

// StuckKind distinguishes the two ways spec §4.5's loop guard detects a
// task has lost forward progress.
type StuckKind string

const (
	StuckTimeout    StuckKind = "timeout"
	StuckRepetition StuckKind = "repetition"
)

// StuckReason is returned by CheckStuck when the task should be nudged.
type StuckReason struct {
	Type   StuckKind
	Detail string
}

// LoopGuard tracks one active task's tool-call history and wall-clock
// start time so the executor can detect a stalled or looping agent
// before the next AI turn (spec §4.5 "Per-task loop guard").
type LoopGuard struct {
	mu                  sync.Mutex
	startedAt           time.Time
	history             []ToolCall
	timeout             time.Duration
	repetitionThreshold int
}

// NewLoopGuard builds a guard with the given timeout and repetition
// threshold (spec defaults: 30s / 2).
func NewLoopGuard(timeout time.Duration, repetitionThreshold int) *LoopGuard {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if repetitionThreshold <= 0 {
		repetitionThreshold = 2
	}
	return &LoopGuard{startedAt: time.Now(), timeout: timeout, repetitionThreshold: repetitionThreshold}
}

// RecordToolCall appends one tool invocation to the history, canonicalizing
// args so repetition detection is insensitive to field ordering.
func (g *LoopGuard) RecordToolCall(toolName string, args interface{}, outcome string) error {
	canon, err := canonicalArgs(args)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = append(g.history, ToolCall{ToolName: toolName, ToolArgs: canon, Outcome: outcome, CalledAt: time.Now()})
	return nil
}

// History returns a copy of the recorded tool calls.
func (g *LoopGuard) History() []ToolCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ToolCall, len(g.history))
	copy(out, g.history)
	return out
}

// CheckStuck implements spec §4.5's checkStuck(): timeout first, then a
// repetitionThreshold-length tail of identical tool name + canonical args.
func (g *LoopGuard) CheckStuck() *StuckReason {
	g.mu.Lock()
	defer g.mu.Unlock()

	if time.Since(g.startedAt) >= g.timeout {
		return &StuckReason{Type: StuckTimeout, Detail: fmt.Sprintf("no completion after %s", time.Since(g.startedAt).Round(time.Second))}
	}

	n := len(g.history)
	if n < g.repetitionThreshold {
		return nil
	}
	tail := g.history[n-g.repetitionThreshold:]
	first := tail[0]
	for _, c := range tail[1:] {
		if c.ToolName != first.ToolName || !bytes.Equal(c.ToolArgs, first.ToolArgs) {
			return nil
		}
	}
	return &StuckReason{
		Type:   StuckRepetition,
		Detail: fmt.Sprintf("%q called %d consecutive times with identical arguments", first.ToolName, g.repetitionThreshold),
	}
}

// BuildRecoveryPrompt renders the stuck reason into the additional turn
// spec §4.5 describes, injected before the next AI call.
func BuildRecoveryPrompt(reason *StuckReason, history []ToolCall) string {
	var lastTool, lastOutcome string
	if len(history) > 0 {
		last := history[len(history)-1]
		lastTool, lastOutcome = last.ToolName, last.Outcome
	}

	word := "stalled"
	if reason.Type == StuckRepetition {
		word = "looping"
	}

	return fmt.Sprintf(
		"Previous attempt %s: %s; last tool: %s → %s. Try a different approach or decompose the problem.",
		word, reason.Detail, lastTool, lastOutcome,
	)
}

// Reset clears history and restarts the timeout clock (spec §4.5
// "reset() clears history and startedAt").
func (g *LoopGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = nil
	g.startedAt = time.Now()
}
