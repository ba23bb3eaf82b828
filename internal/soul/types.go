// Package soul holds the Personality entity and the small amount of CRUD
// around it. Spec §3 treats Knowledge/Skill/Personality as "entity
// records with standard CRUD; not load-bearing for the core design" —
// the only contract the rest of the system needs is ActivePersonality,
// which satisfies internal/integration's PersonalityResolver.
package soul

import "time"

// Personality is the active agent persona that shapes prompt composition
// and gates which integrations feed the Integration Router (spec
// GLOSSARY "Personality").
type Personality struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	SystemPrompt         string    `json:"systemPrompt"`
	Voice                string    `json:"voice,omitempty"`
	SelectedIntegrations []string  `json:"selectedIntegrations,omitempty"`
	Active               bool      `json:"active"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}
