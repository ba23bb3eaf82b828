package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/secureyeoman/secureyeoman/internal/ai"
)

// Tool is one callable the QUERY handler's AI turn loop may invoke.
type Tool struct {
	Spec   ai.ToolSpec
	Invoke func(ctx context.Context, args map[string]interface{}) (outcome string, err error)
}

// toolCallRequest is what a provider response carries when FinishToolCalls
// is returned; the unified ChatResponse shape (spec §4.4) doesn't define
// structured tool-call payloads, so the handler expects them encoded as a
// JSON object in Content: {"tool":"name","args":{...}}.
type toolCallRequest struct {
	Tool string                 `json:"tool"`
	Args map[string]interface{} `json:"args"`
}

// NewQueryHandler builds the Handler for the "QUERY" task type the
// Integration Router submits (spec §4.6 step 7), wiring the AI Gateway
// and the per-task LoopGuard together per spec §4.5's self-repair
// algorithm: before each AI turn, checkStuck(); on a stuck reason,
// inject a recovery prompt instead of calling the provider again
// immediately with the same context.
func NewQueryHandler(gateway *ai.Gateway, tools map[string]Tool, maxTurns int) Handler {
	if maxTurns <= 0 {
		maxTurns = 8
	}
	specs := make([]ai.ToolSpec, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, t.Spec)
	}

	return func(ctx context.Context, t *Task, rt *Runtime) (interface{}, error) {
		input, ok := t.Input["text"].(string)
		if !ok {
			return nil, fmt.Errorf("task: QUERY input missing %q", "text")
		}

		messages := []ai.Message{
			{Role: ai.RoleSystem, Content: "You are an autonomous agent. Use the available tools when needed, otherwise answer directly."},
			{Role: ai.RoleUser, Content: input},
		}

		for turn := 0; turn < maxTurns; turn++ {
			if reason := rt.Guard.CheckStuck(); reason != nil {
				rt.RecoveryPrompt = BuildRecoveryPrompt(reason, rt.Guard.History())
				messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: rt.RecoveryPrompt})
				if reason.Type == StuckTimeout {
					return nil, &Error{Code: ErrCodeTimeout, Message: reason.Detail}
				}
			}

			resp, _, err := gateway.Dispatch(ctx, ai.ChatRequest{Messages: messages, Tools: specs}, ai.RouteRequest{Prompt: input})
			if err != nil {
				return nil, err
			}

			if resp.FinishReason != ai.FinishToolCalls {
				return resp.Content, nil
			}

			var call toolCallRequest
			if err := json.Unmarshal([]byte(resp.Content), &call); err != nil {
				return resp.Content, nil
			}

			tool, ok := tools[call.Tool]
			outcome := "unknown_tool"
			if ok {
				outcome, err = tool.Invoke(ctx, call.Args)
				if err != nil {
					outcome = "error: " + err.Error()
				}
			}
			if recErr := rt.Guard.RecordToolCall(call.Tool, call.Args, outcome); recErr != nil {
				return nil, recErr
			}

			messages = append(messages,
				ai.Message{Role: ai.RoleAssistant, Content: resp.Content},
				ai.Message{Role: ai.RoleTool, Content: outcome},
			)
		}

		return nil, &Error{Code: ErrCodeStuck, Message: fmt.Sprintf("exceeded %d turns without completion", maxTurns)}
	}
}
