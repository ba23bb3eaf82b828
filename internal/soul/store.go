package soul

import (
	"context"
	"sync"
	"time"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/idgen"
	"github.com/secureyeoman/secureyeoman/internal/integration"
)

// Store persists Personality records, grounded on the same mutex-guarded
// map shape every other in-memory store in this module uses
// (internal/memory.InMemoryStore, internal/integration.InMemoryStore).
type Store struct {
	mu           sync.RWMutex
	personas     map[string]*Personality
	activeID     string
}

// NewStore returns an empty Store with no active personality.
func NewStore() *Store {
	return &Store{personas: make(map[string]*Personality)}
}

func (s *Store) Create(_ context.Context, p *Personality) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if p.ID == "" {
		p.ID = idgen.New()
	}
	p.CreatedAt, p.UpdatedAt = now, now
	clone := *p
	s.personas[p.ID] = &clone
	if s.activeID == "" {
		s.activeID = p.ID
		clone.Active = true
		s.personas[p.ID] = &clone
	}
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*Personality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.personas[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "personality %q not found", id)
	}
	clone := *p
	return &clone, nil
}

func (s *Store) List(_ context.Context) ([]*Personality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Personality, 0, len(s.personas))
	for _, p := range s.personas {
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}

func (s *Store) Update(_ context.Context, p *Personality) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.personas[p.ID]; !ok {
		return apperrors.Newf(apperrors.KindNotFound, "personality %q not found", p.ID)
	}
	p.UpdatedAt = time.Now()
	clone := *p
	s.personas[p.ID] = &clone
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.personas[id]; !ok {
		return apperrors.Newf(apperrors.KindNotFound, "personality %q not found", id)
	}
	delete(s.personas, id)
	if s.activeID == id {
		s.activeID = ""
	}
	return nil
}

// Activate makes id the sole active personality.
func (s *Store) Activate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.personas[id]
	if !ok {
		return apperrors.Newf(apperrors.KindNotFound, "personality %q not found", id)
	}
	for pid, p := range s.personas {
		wasActive := p.Active
		p.Active = pid == id
		if wasActive != p.Active {
			p.UpdatedAt = time.Now()
		}
	}
	_ = target
	s.activeID = id
	return nil
}

// Active returns the currently active personality, or nil if none has
// been created yet.
func (s *Store) Active(_ context.Context) (*Personality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeID == "" {
		return nil, nil
	}
	p, ok := s.personas[s.activeID]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

// ActivePersonality adapts Store to integration.PersonalityResolver, the
// only contract the Integration Router needs from this package (spec §3).
func (s *Store) ActivePersonality(ctx context.Context) (*integration.ActivePersonality, error) {
	p, err := s.Active(ctx)
	if err != nil || p == nil {
		return nil, err
	}
	return &integration.ActivePersonality{
		ID:                   p.ID,
		Voice:                p.Voice,
		SelectedIntegrations: p.SelectedIntegrations,
	}, nil
}

var _ integration.PersonalityResolver = (*Store)(nil)
