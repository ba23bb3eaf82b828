package ai

import (
	"github.com/secureyeoman/secureyeoman/internal/config"
	"github.com/secureyeoman/secureyeoman/internal/obs"
)

type providerEndpoint struct {
	baseURL   string
	anthropic bool
}

var providerEndpoints = map[ProviderName]providerEndpoint{
	ProviderAnthropic: {baseURL: "https://api.anthropic.com", anthropic: true},
	ProviderOpenAI:    {baseURL: "https://api.openai.com/v1"},
	ProviderGemini:    {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai"},
	ProviderDeepSeek:  {baseURL: "https://api.deepseek.com"},
	ProviderMistral:   {baseURL: "https://api.mistral.ai/v1"},
	ProviderXAI:       {baseURL: "https://api.x.ai/v1"},
}

// BuildProviders constructs one HTTPProvider per credential present in
// cfg, plus Ollama whenever a base URL is configured (it needs no API
// key), mirroring the teacher's WithProviderAlias auto-configuration in
// ai/provider.go.
func BuildProviders(cfg config.Options, logger obs.Logger) map[ProviderName]Provider {
	providers := map[ProviderName]Provider{}

	add := func(name ProviderName, key string) {
		if key == "" {
			return
		}
		ep := providerEndpoints[name]
		providers[name] = NewHTTPProvider(ProviderConfig{
			Name: name, APIKey: key, BaseURL: ep.baseURL, Logger: logger,
		}, ep.anthropic)
	}

	add(ProviderAnthropic, cfg.AnthropicAPIKey)
	add(ProviderOpenAI, cfg.OpenAIAPIKey)
	add(ProviderGemini, cfg.GeminiAPIKey)
	add(ProviderDeepSeek, cfg.DeepSeekAPIKey)
	add(ProviderMistral, cfg.MistralAPIKey)
	add(ProviderXAI, cfg.GrokAPIKey)

	if cfg.OllamaBaseURL != "" {
		providers[ProviderOllama] = NewHTTPProvider(ProviderConfig{
			Name: ProviderOllama, BaseURL: cfg.OllamaBaseURL, Logger: logger,
		}, false)
	}

	return providers
}

// AvailableModels lists every pricing-table model whose provider is
// present in providers, the "filtered by env-configured credentials"
// input the Router needs (spec §4.4 step 4).
func AvailableModels(providers map[ProviderName]Provider) []string {
	var out []string
	for model, provider := range modelProvider {
		if _, ok := providers[provider]; ok {
			out = append(out, model)
		}
	}
	return out
}

// NewGatewayFromConfig wires providers, router, and usage tracker from
// cfg into a ready-to-use Gateway.
func NewGatewayFromConfig(cfg config.Options, logger obs.Logger) *Gateway {
	providers := BuildProviders(cfg, logger)
	router := NewRouter(AvailableModels(providers))
	tracker := NewUsageTracker(cfg.DailyTokenBudget)
	return NewGateway(providers, router, tracker, DefaultRetryPolicy(), logger)
}
