// Package memory implements the vector-indexed long-term memory store,
// the on-save quick-dedup check, and the scheduled deep-consolidation
// pass described in spec §4.3.
package memory

import "time"

// Type is the memory's cognitive category.
type Type string

const (
	TypeSemantic   Type = "semantic"
	TypeEpisodic   Type = "episodic"
	TypeProcedural Type = "procedural"
)

// Record is a stored memory.
type Record struct {
	ID             string            `json:"id"`
	PersonalityID  string            `json:"personalityId,omitempty"`
	Type           Type              `json:"type"`
	Content        string            `json:"content"`
	Source         string            `json:"source,omitempty"`
	Importance     float64           `json:"importance"`
	AccessCount    int64             `json:"accessCount"`
	LastAccessedAt time.Time         `json:"lastAccessedAt,omitempty"`
	ExpiresAt      *time.Time        `json:"expiresAt,omitempty"`
	Context        map[string]string `json:"context,omitempty"`
	Embedding      []float32         `json:"embedding,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// Filter narrows a List call.
type Filter struct {
	PersonalityID string
	Type          Type
}

// QuickCheckOutcome is the result of the on-save dedup pass (spec §4.3
// "On-save quick check").
type QuickCheckOutcome string

const (
	OutcomeDeduped QuickCheckOutcome = "deduped"
	OutcomeFlagged QuickCheckOutcome = "flagged"
	OutcomeClean   QuickCheckOutcome = "clean"
)

// QuickCheckResult is returned from Save.
type QuickCheckResult struct {
	Outcome   QuickCheckOutcome
	Record    *Record
	Neighbour *Match // nearest match that drove the outcome, when not clean
}

// Match is a single vector-search hit.
type Match struct {
	ID         string
	Similarity float64
}

// ConsolidationActionType is one of the deep-consolidation action kinds.
type ConsolidationActionType string

const (
	ActionMerge        ConsolidationActionType = "MERGE"
	ActionReplace      ConsolidationActionType = "REPLACE"
	ActionKeepSeparate ConsolidationActionType = "KEEP_SEPARATE"
	ActionUpdate       ConsolidationActionType = "UPDATE"
	ActionSkip         ConsolidationActionType = "SKIP"
)

// ConsolidationAction is a single decision emitted by the consolidation
// pass, either AI-proposed or threshold-derived.
type ConsolidationAction struct {
	Type          ConsolidationActionType `json:"type"`
	SourceIDs     []string                `json:"sourceIds"`
	MergedContent string                  `json:"mergedContent,omitempty"`
	UpdateData    map[string]string       `json:"updateData,omitempty"`
	Reason        string                  `json:"reason,omitempty"`
}

// ConsolidationSummary reports the outcome of one ConsolidationManager.Run pass.
type ConsolidationSummary struct {
	CandidatesConsidered int
	ActionsProposed      int
	Merged               int
	Replaced             int
	Updated              int
	KeptSeparate         int
	Skipped              int
	DryRun               bool
}
