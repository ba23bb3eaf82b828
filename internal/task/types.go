// Package task implements the Task Executor & Self-Repairing Loop (spec
// §4.5): a submission/execution pipeline for agent tasks with a per-task
// loop guard that detects stuck execution (timeout or tool-call
// repetition) and injects a recovery prompt. Grounded on the teacher's
// core/async_task.go Task/TaskStatus/TaskHandler model, generalized from
// a generic long-running-job system to the agent-tool-loop shape this
// spec needs.
package task

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a Task (spec §3 "Task").
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether s is a state execution no longer leaves.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Error carries structured failure detail for a failed Task.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Code + ": " + e.Message + " (" + e.Details + ")"
	}
	return e.Code + ": " + e.Message
}

const (
	ErrCodeTimeout      = "TASK_TIMEOUT"
	ErrCodeCancelled    = "TASK_CANCELLED"
	ErrCodeHandlerError = "HANDLER_ERROR"
	ErrCodePanic        = "HANDLER_PANIC"
	ErrCodeStuck        = "TASK_STUCK"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// ToolCall is one entry in a task's tool-invocation history (spec §3
// "Tool-call history").
type ToolCall struct {
	ToolName string          `json:"toolName"`
	ToolArgs json.RawMessage `json:"toolArgs"`
	Outcome  string          `json:"outcome"`
	CalledAt time.Time       `json:"calledAt"`
}

// canonicalArgs re-marshals args so two logically identical argument sets
// compare equal regardless of field insertion order: encoding/json
// already sorts map[string]interface{} keys, so a marshal/remarshal
// round trip is sufficient canonicalization.
func canonicalArgs(args interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// Task is one unit of executor work (spec §3 "Task").
type Task struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Input       map[string]interface{} `json:"input"`
	Status      Status                 `json:"status"`
	Result      interface{}            `json:"result,omitempty"`
	Err         *Error                 `json:"error,omitempty"`
	History     []ToolCall             `json:"history,omitempty"`

	UserID        string `json:"userId,omitempty"`
	Role          string `json:"role,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ExecutionContext is built by callers (the Integration Router, the API
// surface) before Submit (spec §4.6 step 6).
type ExecutionContext struct {
	UserID        string
	Role          string
	CorrelationID string
}

// QueryInput is the Input shape for the QUERY task type the Integration
// Router submits (spec §4.6 step 7).
type QueryInput struct {
	Text     string            `json:"text"`
	Platform string            `json:"platform,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
