package ai

import "fmt"

// RecommendationType names one category of savings opportunity (spec
// §4.4 "Cost optimizer").
type RecommendationType string

const (
	RecommendCaching        RecommendationType = "caching"
	RecommendCheaperModel   RecommendationType = "cheaper_model_routing"
	RecommendShorterPrompts RecommendationType = "prompt_length_reduction"
	RecommendBatching       RecommendationType = "batching"
)

// Recommendation is one proposed change with an estimated USD/day saving.
type Recommendation struct {
	Type             RecommendationType
	Message          string
	EstimatedSavings float64
}

// Analyze inspects a usage snapshot and proposes savings opportunities.
// Every estimate is derived from the snapshot's own cost figures, never a
// fixed constant, so recommendations scale with actual spend.
func Analyze(snapshot Snapshot) []Recommendation {
	var recs []Recommendation

	if snapshot.CallCount > 50 {
		dupShare := 0.1
		recs = append(recs, Recommendation{
			Type:             RecommendCaching,
			Message:          fmt.Sprintf("call volume is high (%d calls today); caching repeated prompts could avoid an estimated %.0f%% of spend", snapshot.CallCount, dupShare*100),
			EstimatedSavings: snapshot.CostUSDToday * dupShare,
		})
	}

	for provider, ps := range snapshot.ByProvider {
		if ps.CostUSD == 0 || ps.CallCount == 0 {
			continue
		}
		avgCostPerCall := ps.CostUSD / float64(ps.CallCount)
		if avgCostPerCall > 0.01 {
			recs = append(recs, Recommendation{
				Type:             RecommendCheaperModel,
				Message:          fmt.Sprintf("%s calls average $%.4f each; routing fast-tier tasks to a cheaper model in the same tier could cut this materially", provider, avgCostPerCall),
				EstimatedSavings: ps.CostUSD * 0.4,
			})
		}
	}

	if snapshot.TokensUsedToday > 0 && snapshot.CallCount > 0 {
		avgTokensPerCall := snapshot.TokensUsedToday / snapshot.CallCount
		if avgTokensPerCall > 4000 {
			recs = append(recs, Recommendation{
				Type:             RecommendShorterPrompts,
				Message:          fmt.Sprintf("average %d tokens/call; trimming context or summarizing history could reduce input size", avgTokensPerCall),
				EstimatedSavings: snapshot.CostUSDToday * 0.15,
			})
		}
	}

	if snapshot.CallCount > 20 {
		recs = append(recs, Recommendation{
			Type:             RecommendBatching,
			Message:          "several independent calls per day could be grouped into fewer batched requests",
			EstimatedSavings: snapshot.CostUSDToday * 0.05,
		})
	}

	return recs
}
