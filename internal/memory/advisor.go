package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/secureyeoman/secureyeoman/internal/ai"
)

// Chatter is the narrow slice of internal/ai.Gateway the AI-backed
// advisor needs, kept as a local interface so tests can stub it without
// building a full Gateway.
type Chatter interface {
	Dispatch(ctx context.Context, req ai.ChatRequest, route ai.RouteRequest) (*ai.ChatResponse, *ai.Decision, error)
}

// AIAdvisor proposes consolidation actions via the AI Gateway, grounded
// on spec §4.3 step 3: "build a structured prompt listing each candidate
// with its neighbours; request a JSON array of actions... parse
// defensively (strip code fences, tolerate surrounding prose, drop
// malformed items)".
type AIAdvisor struct {
	gateway Chatter
}

func NewAIAdvisor(gateway Chatter) *AIAdvisor {
	return &AIAdvisor{gateway: gateway}
}

func (a *AIAdvisor) Propose(ctx context.Context, groups []CandidateGroup) ([]ConsolidationAction, error) {
	prompt := buildConsolidationPrompt(groups)
	resp, _, err := a.gateway.Dispatch(ctx, ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "You consolidate a memory store. Respond with a JSON array only, no prose."},
			{Role: ai.RoleUser, Content: prompt},
		},
	}, ai.RouteRequest{Prompt: prompt})
	if err != nil {
		return nil, err
	}
	return parseConsolidationActions(resp.Content), nil
}

func buildConsolidationPrompt(groups []CandidateGroup) string {
	var b strings.Builder
	b.WriteString("For each candidate below, decide one action: MERGE, REPLACE, KEEP_SEPARATE, UPDATE, or SKIP.\n")
	b.WriteString(`Respond with a JSON array of {"type","sourceIds","mergedContent","updateData","reason"}.` + "\n\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "Candidate %s: %q (importance=%.2f)\n", g.Record.ID, g.Record.Content, g.Record.Importance)
		for _, n := range g.Neighbours {
			fmt.Fprintf(&b, "  neighbour %s: %q (importance=%.2f)\n", n.ID, n.Content, n.Importance)
		}
	}
	return b.String()
}

// parseConsolidationActions defensively extracts a JSON array of actions
// from a provider response that may wrap it in a markdown code fence or
// surrounding prose, dropping any element that doesn't parse as a valid
// action (spec §4.3 step 3).
func parseConsolidationActions(raw string) []ConsolidationAction {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return nil
	}
	text = text[start : end+1]

	var raws []json.RawMessage
	if err := json.Unmarshal([]byte(text), &raws); err != nil {
		return nil
	}

	actions := make([]ConsolidationAction, 0, len(raws))
	for _, r := range raws {
		var a ConsolidationAction
		if err := json.Unmarshal(r, &a); err != nil {
			continue
		}
		switch a.Type {
		case ActionMerge, ActionReplace, ActionKeepSeparate, ActionUpdate, ActionSkip:
		default:
			continue
		}
		if len(a.SourceIDs) == 0 {
			continue
		}
		actions = append(actions, a)
	}
	return actions
}

var _ Advisor = (*AIAdvisor)(nil)
