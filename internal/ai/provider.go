package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/obs"
)

// ProviderName identifies one of the configured backends (spec §6
// "Optional: provider API keys").
type ProviderName string

const (
	ProviderAnthropic ProviderName = "anthropic"
	ProviderOpenAI    ProviderName = "openai"
	ProviderGemini    ProviderName = "gemini"
	ProviderDeepSeek  ProviderName = "deepseek"
	ProviderMistral   ProviderName = "mistral"
	ProviderXAI       ProviderName = "xai"
	ProviderOllama    ProviderName = "ollama"
)

// Provider is the capability set every backend implements (spec §4.4).
type Provider interface {
	Name() ProviderName
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ProviderConfig mirrors the teacher's AIConfig, generalized from a
// single OpenAI client to any OpenAI-compatible chat-completions
// endpoint (every configured provider except Anthropic speaks this wire
// shape; Anthropic's own Messages API is adapted to the same Request/
// Response struct below).
type ProviderConfig struct {
	Name    ProviderName
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Logger  obs.Logger
}

// HTTPProvider is a generic OpenAI-compatible chat-completions client,
// grounded on ai/client.go's OpenAIClient request/response handling.
type HTTPProvider struct {
	name       ProviderName
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     obs.Logger
	anthropic  bool
}

// NewHTTPProvider constructs a Provider over cfg. anthropicWire selects
// Anthropic's Messages API request/response shape instead of the
// OpenAI-compatible chat-completions shape every other configured
// provider uses.
func NewHTTPProvider(cfg ProviderConfig, anthropicWire bool) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = obs.NoOpLogger{}
	}
	return &HTTPProvider{
		name:       cfg.Name,
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.WithComponent("ai." + string(cfg.Name)),
		anthropic:  anthropicWire,
	}
}

func (p *HTTPProvider) Name() ProviderName { return p.name }

func (p *HTTPProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if p.anthropic {
		return p.chatAnthropic(ctx, req)
	}
	return p.chatOpenAICompatible(ctx, req)
}

func (p *HTTPProvider) chatOpenAICompatible(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	messages := make([]map[string]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, map[string]string{"role": string(m.Role), "content": m.Content})
	}

	body := map[string]interface{}{
		"model":       req.Model,
		"messages":    messages,
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(resp.StatusCode, respBody)
	}

	var parsed struct {
		Choices []struct {
			Message      struct{ Content string `json:"content"` } `json:"message"`
			FinishReason string                                    `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, apperrors.New("ai.Chat", apperrors.KindInvalidResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return nil, apperrors.Newf(apperrors.KindInvalidResponse, "provider returned no choices")
	}

	return &ChatResponse{
		Content:      parsed.Choices[0].Message.Content,
		FinishReason: mapFinishReason(parsed.Choices[0].FinishReason),
		Usage: Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}

func (p *HTTPProvider) chatAnthropic(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var system string
	messages := make([]map[string]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = m.Content
			continue
		}
		messages = append(messages, map[string]string{"role": string(m.Role), "content": m.Content})
	}

	body := map[string]interface{}{
		"model":      req.Model,
		"messages":   messages,
		"max_tokens": req.MaxTokens,
	}
	if system != "" {
		body["system"] = system
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(resp.StatusCode, respBody)
	}

	var parsed struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, apperrors.New("ai.Chat", apperrors.KindInvalidResponse, err)
	}
	if len(parsed.Content) == 0 {
		return nil, apperrors.Newf(apperrors.KindInvalidResponse, "provider returned no content blocks")
	}

	return &ChatResponse{
		Content:      parsed.Content[0].Text,
		FinishReason: mapFinishReason(parsed.StopReason),
		Usage:        Usage{InputTokens: parsed.Usage.InputTokens, OutputTokens: parsed.Usage.OutputTokens},
	}, nil
}

func mapFinishReason(raw string) FinishReason {
	switch raw {
	case "length", "max_tokens":
		return FinishLength
	case "tool_calls", "tool_use":
		return FinishToolCalls
	case "stop", "end_turn", "":
		return FinishStop
	default:
		return FinishStop
	}
}

func classifyTransportError(err error) error {
	return apperrors.New("ai.Chat", apperrors.KindNetwork, err)
}

func classifyHTTPStatus(status int, body []byte) error {
	msg := string(body)
	switch status {
	case http.StatusTooManyRequests:
		return apperrors.Newf(apperrors.KindProviderRateLimit, "provider rate limited: %s", msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.Newf(apperrors.KindAuthentication, "provider authentication failed: %s", msg)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return apperrors.Newf(apperrors.KindTimeout, "provider request timed out: %s", msg)
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return apperrors.Newf(apperrors.KindProviderUnavailable, "provider unavailable: %s", msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.Newf(apperrors.KindInvalidResponse, "provider rejected request: %s", msg)
	default:
		return apperrors.Newf(apperrors.KindProviderUnavailable, "provider error (status %d): %s", status, msg)
	}
}

var _ Provider = (*HTTPProvider)(nil)
