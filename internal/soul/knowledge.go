package soul

import (
	"context"
	"sync"
	"time"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/idgen"
)

// Knowledge is a standard-CRUD entity record (spec §3 "Knowledge, Skill,
// Personality, Passion/Inspiration/Pain... not load-bearing for the core
// design").
type Knowledge struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// KnowledgeStore is the mutex-guarded in-memory CRUD store.
type KnowledgeStore struct {
	mu    sync.RWMutex
	items map[string]*Knowledge
}

func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{items: make(map[string]*Knowledge)}
}

func (s *KnowledgeStore) Create(_ context.Context, k *Knowledge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if k.ID == "" {
		k.ID = idgen.New()
	}
	k.CreatedAt, k.UpdatedAt = now, now
	cp := *k
	s.items[k.ID] = &cp
	return nil
}

func (s *KnowledgeStore) List(_ context.Context) ([]*Knowledge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Knowledge, 0, len(s.items))
	for _, k := range s.items {
		cp := *k
		out = append(out, &cp)
	}
	return out, nil
}

func (s *KnowledgeStore) Get(_ context.Context, id string) (*Knowledge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.items[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "knowledge %q not found", id)
	}
	cp := *k
	return &cp, nil
}

func (s *KnowledgeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return apperrors.Newf(apperrors.KindNotFound, "knowledge %q not found", id)
	}
	delete(s.items, id)
	return nil
}
