package auth

import (
	"context"
	"sync"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/idgen"
)

// RoleStore persists Role records.
type RoleStore interface {
	Create(ctx context.Context, r *Role) error
	Get(ctx context.Context, id string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Delete(ctx context.Context, id string) error
}

// KeyStore persists API key records, looked up by hash at request time.
type KeyStore interface {
	Create(ctx context.Context, k *APIKeyRecord) error
	Get(ctx context.Context, id string) (*APIKeyRecord, error)
	FindByHash(ctx context.Context, match func(hash string) bool) (*APIKeyRecord, error)
	List(ctx context.Context) ([]*APIKeyRecord, error)
	Delete(ctx context.Context, id string) error
}

// MemoryRoleStore is the default in-process RoleStore, seeded with the
// built-in roles on construction.
type MemoryRoleStore struct {
	mu    sync.RWMutex
	roles map[string]*Role
}

func NewMemoryRoleStore() *MemoryRoleStore {
	s := &MemoryRoleStore{roles: make(map[string]*Role)}
	for _, r := range defaultRoles() {
		s.roles[r.ID] = r
	}
	return s
}

func defaultRoles() []*Role {
	return []*Role{
		{
			ID: RoleAdmin, Name: "Administrator", IsBuiltin: true,
			Permissions: []Permission{{Resource: "*", Action: "*"}},
		},
		{
			ID: RoleOperator, Name: "Operator", IsBuiltin: true,
			Permissions: []Permission{
				{Resource: "task.*", Action: "*"},
				{Resource: "memory.*", Action: "read"},
				{Resource: "memory.*", Action: "write"},
				{Resource: "integration.*", Action: "read"},
			},
		},
		{
			ID: RoleViewer, Name: "Viewer", IsBuiltin: true,
			Permissions: []Permission{
				{Resource: "*", Action: "read"},
			},
		},
		{
			ID: RoleAuditor, Name: "Auditor", IsBuiltin: true,
			Permissions: []Permission{
				{Resource: "audit.*", Action: "read"},
				{Resource: "audit.*", Action: "verify"},
			},
		},
	}
}

func (s *MemoryRoleStore) Create(_ context.Context, r *Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = idgen.New()
	}
	clone := *r
	s.roles[r.ID] = &clone
	return nil
}

func (s *MemoryRoleStore) Get(_ context.Context, id string) (*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[id]
	if !ok {
		return nil, nil
	}
	clone := *r
	return &clone, nil
}

func (s *MemoryRoleStore) List(_ context.Context) ([]*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Role, 0, len(s.roles))
	for _, r := range s.roles {
		clone := *r
		out = append(out, &clone)
	}
	return out, nil
}

func (s *MemoryRoleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.roles[id]; ok && r.IsBuiltin {
		return apperrors.Newf(apperrors.KindInvalidInput, "built-in role %q cannot be deleted", id)
	}
	delete(s.roles, id)
	return nil
}

// MemoryKeyStore is the default in-process KeyStore.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*APIKeyRecord
}

func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]*APIKeyRecord)}
}

func (s *MemoryKeyStore) Create(_ context.Context, k *APIKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k.ID == "" {
		k.ID = idgen.New()
	}
	clone := *k
	s.keys[k.ID] = &clone
	return nil
}

func (s *MemoryKeyStore) Get(_ context.Context, id string) (*APIKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[id]
	if !ok {
		return nil, nil
	}
	clone := *k
	return &clone, nil
}

func (s *MemoryKeyStore) FindByHash(_ context.Context, match func(hash string) bool) (*APIKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if match(k.Hash) {
			clone := *k
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *MemoryKeyStore) List(_ context.Context) ([]*APIKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*APIKeyRecord, 0, len(s.keys))
	for _, k := range s.keys {
		clone := *k
		out = append(out, &clone)
	}
	return out, nil
}

func (s *MemoryKeyStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, id)
	return nil
}

var _ RoleStore = (*MemoryRoleStore)(nil)
var _ KeyStore = (*MemoryKeyStore)(nil)
