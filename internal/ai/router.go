package ai

import (
	"sort"
	"strings"
)

// Tier is the capability band a model is assigned to (spec GLOSSARY
// "Tier").
type Tier string

const (
	TierFast     Tier = "fast"
	TierCapable  Tier = "capable"
	TierAdvanced Tier = "advanced"
)

// TaskType is the keyword-detected purpose of a prompt (spec §4.4 step 2).
type TaskType string

const (
	TaskSummarize TaskType = "summarize"
	TaskClassify  TaskType = "classify"
	TaskExtract   TaskType = "extract"
	TaskQA        TaskType = "qa"
	TaskCode      TaskType = "code"
	TaskReason    TaskType = "reason"
	TaskPlan      TaskType = "plan"
	TaskGeneral   TaskType = "general"
)

// Complexity is the length/structure-derived difficulty estimate.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// TaskProfile is the router's classification of one prompt.
type TaskProfile struct {
	TaskType   TaskType
	Complexity Complexity
}

// RouteRequest is the router's input (spec §4.4 "Given a user prompt and
// optional context string").
type RouteRequest struct {
	Prompt        string
	Context       string
	TokenBudget   int
	AllowedModels []string

	// ForcedModel, when set and reachable, bypasses the usual
	// task-complexity tier classification and is routed to directly
	// (spec §6 "GET|POST|DELETE /model/default"). Prompt is still
	// classified for TaskProfile/Confidence reporting purposes.
	ForcedModel string
}

// Alternative is a cheaper model than the one selected.
type Alternative struct {
	Provider         ProviderName
	Model            string
	EstimatedCostUSD float64
}

// Decision is the router's output (spec §4.4 step 6).
type Decision struct {
	Provider         ProviderName
	Model            string
	Tier             Tier
	Confidence       float64
	TaskProfile      TaskProfile
	EstimatedCostUSD float64
	CheaperAlternative *Alternative
}

// tierTable maps {taskType, complexity} to a capability band. Entries
// absent fall back to complexity-only defaults in tierForComplexity.
var tierTable = map[TaskType]map[Complexity]Tier{
	TaskCode:   {ComplexitySimple: TierFast, ComplexityModerate: TierCapable, ComplexityComplex: TierAdvanced},
	TaskReason: {ComplexitySimple: TierCapable, ComplexityModerate: TierCapable, ComplexityComplex: TierAdvanced},
	TaskPlan:   {ComplexitySimple: TierCapable, ComplexityModerate: TierCapable, ComplexityComplex: TierAdvanced},
}

func tierForComplexity(c Complexity) Tier {
	switch c {
	case ComplexitySimple:
		return TierFast
	case ComplexityModerate:
		return TierCapable
	default:
		return TierAdvanced
	}
}

// Router implements spec §4.4's model-routing algorithm.
type Router struct {
	// available lists every model with a configured provider credential,
	// the "available models filtered by env-configured credentials" set
	// spec §4.4 step 4 describes.
	available []string
}

// NewRouter constructs a Router over the set of models whose provider
// currently has credentials configured.
func NewRouter(available []string) *Router {
	return &Router{available: append([]string(nil), available...)}
}

// Route classifies req.Prompt and selects the cheapest qualifying model.
func (r *Router) Route(req RouteRequest) Decision {
	profile, confidence := classify(req.Prompt, req.Context)
	tier := tierFor(profile)

	if req.ForcedModel != "" && r.isAvailable(req.ForcedModel) {
		return Decision{
			Provider: modelProvider[req.ForcedModel], Model: req.ForcedModel, Tier: modelTier[req.ForcedModel],
			Confidence: confidence, TaskProfile: profile,
			EstimatedCostUSD: estimateCost(req.ForcedModel, req.TokenBudget),
		}
	}

	allowed := r.available
	if len(req.AllowedModels) > 0 {
		allowed = intersect(r.available, req.AllowedModels)
	}

	tierCandidates := filterByTier(allowed, tier)
	selected, cost, ok := cheapest(tierCandidates, req.TokenBudget)
	if !ok {
		return Decision{TaskProfile: profile, Tier: tier, Confidence: 0}
	}

	decision := Decision{
		Provider: modelProvider[selected], Model: selected, Tier: tier,
		Confidence: confidence, TaskProfile: profile, EstimatedCostUSD: cost,
	}

	if alt, altCost, ok := cheapest(allowed, req.TokenBudget); ok && alt != selected {
		if altCost < cost*0.75 {
			decision.CheaperAlternative = &Alternative{Provider: modelProvider[alt], Model: alt, EstimatedCostUSD: altCost}
		}
	}
	return decision
}

func (r *Router) isAvailable(model string) bool {
	for _, m := range r.available {
		if m == model {
			return true
		}
	}
	return false
}

func tierFor(p TaskProfile) Tier {
	if byComplexity, ok := tierTable[p.TaskType]; ok {
		if tier, ok := byComplexity[p.Complexity]; ok {
			return tier
		}
	}
	return tierForComplexity(p.Complexity)
}

func filterByTier(models []string, tier Tier) []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		if modelTier[m] == tier {
			out = append(out, m)
		}
	}
	return out
}

func cheapest(models []string, tokenBudget int) (string, float64, bool) {
	if len(models) == 0 {
		return "", 0, false
	}
	sorted := append([]string(nil), models...)
	sort.Slice(sorted, func(i, j int) bool {
		return estimateCost(sorted[i], tokenBudget) < estimateCost(sorted[j], tokenBudget)
	})
	best := sorted[0]
	return best, estimateCost(best, tokenBudget), true
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, m := range b {
		set[m] = true
	}
	out := make([]string, 0, len(a))
	for _, m := range a {
		if set[m] {
			out = append(out, m)
		}
	}
	return out
}

var taskKeywords = map[TaskType][]string{
	TaskSummarize: {"summarize", "summary", "tl;dr", "condense"},
	TaskClassify:  {"classify", "categorize", "label"},
	TaskExtract:   {"extract", "parse out", "pull out"},
	TaskQA:        {"what is", "why", "how do", "explain", "question"},
	TaskCode:      {"implement", "algorithm", "function", "code", "bug", "refactor"},
	TaskReason:    {"reason", "reasoning", "analy", "edge case"},
	TaskPlan:      {"plan", "roadmap", "strategy", "steps to"},
}

// classify detects TaskType by keyword and Complexity by length/
// compound-sentence signals (spec §4.4 step 2), returning a confidence
// that's high on a clean keyword hit and lower on the general fallback.
func classify(prompt, context string) (TaskProfile, float64) {
	text := strings.ToLower(prompt + " " + context)

	taskType := TaskGeneral
	confidence := 0.5
	for _, t := range []TaskType{TaskSummarize, TaskClassify, TaskExtract, TaskQA, TaskCode, TaskReason, TaskPlan} {
		for _, kw := range taskKeywords[t] {
			if strings.Contains(text, kw) {
				taskType = t
				confidence = 0.9
				break
			}
		}
		if confidence == 0.9 {
			break
		}
	}

	complexity := ComplexitySimple
	words := len(strings.Fields(prompt))
	compoundSignals := strings.Count(text, " and ") + strings.Count(text, ", ") + strings.Count(text, " with ")
	switch {
	case words > 25 || compoundSignals >= 3:
		complexity = ComplexityComplex
	case words > 10 || compoundSignals >= 1:
		complexity = ComplexityModerate
	}

	return TaskProfile{TaskType: taskType, Complexity: complexity}, confidence
}
