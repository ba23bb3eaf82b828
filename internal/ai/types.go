// Package ai implements the AI Gateway & Model Router described in spec
// §4.4: a provider-agnostic chat dispatch layer with usage/cost
// accounting, daily budget enforcement, task-complexity-based model
// selection, and retry/backoff. Grounded directly on the teacher's `ai`
// package (Provider abstraction, AIConfig functional options) and
// `resilience/retry.go` (generalized here to use
// github.com/cenkalti/backoff/v5 for the exponential-backoff-with-jitter
// primitive the teacher partially hand-rolled).
package ai

import "time"

// Role is a chat message's author role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn in a chat request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToolSpec is a callable tool definition passed to providers that
// support tool use. The Gateway does not invoke tools itself — the Task
// Executor does — it only carries the spec through to the provider.
type ToolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ChatRequest is the unified request shape every Provider accepts (spec
// §4.4 "Provider abstraction").
type ChatRequest struct {
	Messages    []Message
	Model       string
	Stream      bool
	MaxTokens   int
	Temperature float32
	Tools       []ToolSpec
}

// FinishReason reports why generation stopped.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishLength    FinishReason = "length"
	FinishToolCalls FinishReason = "tool_calls"
	FinishError     FinishReason = "error"
)

// Usage is the token accounting for one chat call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	CachedTokens int
}

// ChatResponse is the unified response shape (spec §4.4).
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason FinishReason
}

// UsageRecord is persisted by the tracker after each call (spec §3
// "Usage Record").
type UsageRecord struct {
	Provider  string
	Model     string
	Usage     Usage
	CostUSD   float64
	LatencyMS int64
	Timestamp time.Time
}
