package ai

// pricePerMillion is the (input, output) USD cost per million tokens for
// one model, matching spec §8 scenario 5's mock pricing table. Local
// providers (Ollama) are priced at zero.
type pricePerMillion struct {
	Input  float64
	Output float64
}

var modelPricing = map[string]pricePerMillion{
	"claude-haiku-3-5-20241022":  {Input: 0.8, Output: 4},
	"claude-sonnet-4-20250514":   {Input: 3, Output: 15},
	"claude-opus-4-20250514":     {Input: 15, Output: 75},
	"gpt-4o-mini":                {Input: 0.15, Output: 0.6},
	"gpt-4o":                     {Input: 2.5, Output: 10},
	"gemini-1.5-flash":           {Input: 0.075, Output: 0.3},
	"gemini-1.5-pro":             {Input: 1.25, Output: 5},
	"deepseek-chat":              {Input: 0.14, Output: 0.28},
	"mistral-large-latest":       {Input: 2, Output: 6},
	"grok-2-latest":              {Input: 2, Output: 10},
	"llama3.1":                   {Input: 0, Output: 0},
}

// modelTier assigns every known model to the capability band used by the
// router (spec §4.4 step 3).
var modelTier = map[string]Tier{
	"claude-haiku-3-5-20241022": TierFast,
	"gpt-4o-mini":               TierFast,
	"gemini-1.5-flash":          TierFast,
	"deepseek-chat":             TierFast,
	"llama3.1":                  TierFast,

	"claude-sonnet-4-20250514": TierCapable,
	"gpt-4o":                   TierCapable,
	"gemini-1.5-pro":           TierCapable,
	"mistral-large-latest":     TierCapable,

	"claude-opus-4-20250514": TierAdvanced,
	"grok-2-latest":          TierAdvanced,
}

var modelProvider = map[string]ProviderName{
	"claude-haiku-3-5-20241022": ProviderAnthropic,
	"claude-sonnet-4-20250514":  ProviderAnthropic,
	"claude-opus-4-20250514":    ProviderAnthropic,
	"gpt-4o-mini":               ProviderOpenAI,
	"gpt-4o":                    ProviderOpenAI,
	"gemini-1.5-flash":          ProviderGemini,
	"gemini-1.5-pro":            ProviderGemini,
	"deepseek-chat":             ProviderDeepSeek,
	"mistral-large-latest":      ProviderMistral,
	"grok-2-latest":             ProviderXAI,
	"llama3.1":                  ProviderOllama,
}

// CalculateCost prices a completed call's usage against the static table.
// Unknown models cost zero rather than erroring — pricing gaps should
// surface in the cost optimizer's review, not break a live request.
func CalculateCost(_ ProviderName, model string, usage Usage) float64 {
	price, ok := modelPricing[model]
	if !ok {
		return 0
	}
	in := float64(usage.InputTokens) / 1_000_000 * price.Input
	out := float64(usage.OutputTokens) / 1_000_000 * price.Output
	return in + out
}

// estimateCost prices a hypothetical call at the given token budget,
// split evenly between input and output as the router has no way to know
// the true split ahead of a call.
func estimateCost(model string, tokenBudget int) float64 {
	price, ok := modelPricing[model]
	if !ok {
		return 0
	}
	half := float64(tokenBudget) / 2 / 1_000_000
	return half*price.Input + half*price.Output
}
