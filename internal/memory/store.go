package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/idgen"
	"github.com/secureyeoman/secureyeoman/internal/obs"
)

// Store persists memory records. Grounded on core.MemoryStore's
// Get/Set/Delete/Exists shape, generalized from a TTL string cache to a
// typed record store with listing.
type Store interface {
	Create(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Update(ctx context.Context, r *Record) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]*Record, error)
}

// InMemoryStore is the default Store, a mutex-guarded map exactly like
// core.MemoryStore's internal representation.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	logger  obs.Logger
}

func NewInMemoryStore(logger obs.Logger) *InMemoryStore {
	if logger == nil {
		logger = obs.NoOpLogger{}
	}
	return &InMemoryStore{records: make(map[string]*Record), logger: logger.WithComponent("memory.store")}
}

func (s *InMemoryStore) Create(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = idgen.New()
	}
	clone := *r
	s.records[r.ID] = &clone
	s.logger.Debug("memory created", obs.Fields{"id": r.ID, "type": r.Type})
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	clone := *r
	return &clone, nil
}

func (s *InMemoryStore) Update(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; !ok {
		return apperrors.Newf(apperrors.KindNotFound, "memory %q not found", r.ID)
	}
	clone := *r
	s.records[r.ID] = &clone
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, f Filter) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		if f.PersonalityID != "" && r.PersonalityID != f.PersonalityID {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		clone := *r
		out = append(out, &clone)
	}
	return out, nil
}

// RedisStore is the durable Store backend, following the teacher's use
// of go-redis/redis/v8 as its interchangeable storage client.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string { return fmt.Sprintf("%s:record:%s", s.prefix, id) }
func (s *RedisStore) indexKey() string     { return fmt.Sprintf("%s:record:index", s.prefix) }

func (s *RedisStore) Create(ctx context.Context, r *Record) error {
	if r.ID == "" {
		r.ID = idgen.New()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("memory: marshal record: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(r.ID), data, 0)
	pipe.SAdd(ctx, s.indexKey(), r.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.New("memory.Create", apperrors.KindStorageUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.New("memory.Get", apperrors.KindStorageUnavailable, err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("memory: unmarshal record: %w", err)
	}
	return &r, nil
}

func (s *RedisStore) Update(ctx context.Context, r *Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("memory: marshal record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(r.ID), data, 0).Err(); err != nil {
		return apperrors.New("memory.Update", apperrors.KindStorageUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.SRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.New("memory.Delete", apperrors.KindStorageUnavailable, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, f Filter) ([]*Record, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, apperrors.New("memory.List", apperrors.KindStorageUnavailable, err)
	}
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		r, err := s.Get(ctx, id)
		if err != nil || r == nil {
			continue
		}
		if f.PersonalityID != "" && r.PersonalityID != f.PersonalityID {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
