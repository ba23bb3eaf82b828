package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/secureyeoman/secureyeoman/internal/obs"
)

// ErrNotFound is returned when a task id has no record.
var ErrNotFound = errors.New("task: not found")

// Store persists Tasks, grounded on the teacher's core.TaskStore
// interface (orchestration/redis_task_store.go implements it over
// Redis; the in-memory variant below follows core/memory_store.go's
// mutex-guarded map).
type Store interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Task, error)
}

// InMemoryStore is the default Store, suitable for single-process
// deployments (spec.md Non-goals: no distributed coordination).
type InMemoryStore struct {
	mu     sync.RWMutex
	tasks  map[string]*Task
	logger obs.Logger
}

func NewInMemoryStore(logger obs.Logger) *InMemoryStore {
	if logger == nil {
		logger = obs.NoOpLogger{}
	}
	return &InMemoryStore{tasks: make(map[string]*Task), logger: logger.WithComponent("task.store")}
}

func (s *InMemoryStore) Create(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *InMemoryStore) Update(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// RedisStore persists tasks as JSON strings under {prefix}:{id}, indexed
// by a set for List, grounded on orchestration/redis_task_store.go.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "secureyeoman:tasks"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string { return fmt.Sprintf("%s:%s", s.prefix, id) }
func (s *RedisStore) indexKey() string     { return s.prefix + ":index" }

func (s *RedisStore) Create(ctx context.Context, t *Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(t.ID), data, 0)
	pipe.SAdd(ctx, s.indexKey(), t.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Task, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *RedisStore) Update(ctx context.Context, t *Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(t.ID), data, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.SRem(ctx, s.indexKey(), id)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) List(ctx context.Context) ([]*Task, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
