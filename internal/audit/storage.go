package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/go-redis/redis/v8"
)

// Storage is the interchangeable persistence backend for the chain (spec
// §4.1). Append must be atomic: either the entry is fully persisted or
// the call fails and the chain is unchanged.
type Storage interface {
	// Append persists a new entry. It must fail with an error (never
	// partially write) if sequence is not exactly one greater than the
	// highest previously stored sequence.
	Append(ctx context.Context, e *Entry) error

	// Head returns the highest-sequence entry, or nil if the chain is
	// empty.
	Head(ctx context.Context) (*Entry, error)

	// Range streams entries with sequence in [from, to] (inclusive,
	// to==0 meaning "no upper bound") in ascending sequence order.
	Range(ctx context.Context, from, to int64) ([]*Entry, error)

	// Get returns a single entry by sequence, mainly so tests can mutate
	// a persisted entry to exercise tamper detection.
	Get(ctx context.Context, sequence int64) (*Entry, error)

	// Put overwrites a stored entry in place. Only ever used by
	// maintenance/test code — the chain itself never calls this.
	Put(ctx context.Context, e *Entry) error
}

// MemoryStorage is the default in-process backend.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[int64]*Entry
	maxSeq  int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[int64]*Entry)}
}

func (s *MemoryStorage) Append(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Sequence != s.maxSeq+1 {
		return fmt.Errorf("audit: out-of-order append: got sequence %d, expected %d", e.Sequence, s.maxSeq+1)
	}
	clone := *e
	s.entries[e.Sequence] = &clone
	s.maxSeq = e.Sequence
	return nil
}

func (s *MemoryStorage) Head(_ context.Context) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.maxSeq == 0 {
		return nil, nil
	}
	clone := *s.entries[s.maxSeq]
	return &clone, nil
}

func (s *MemoryStorage) Range(_ context.Context, from, to int64) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if from <= 0 {
		from = 1
	}
	if to <= 0 || to > s.maxSeq {
		to = s.maxSeq
	}
	out := make([]*Entry, 0, to-from+1)
	for seq := from; seq <= to; seq++ {
		e, ok := s.entries[seq]
		if !ok {
			continue
		}
		clone := *e
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (s *MemoryStorage) Get(_ context.Context, sequence int64) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[sequence]
	if !ok {
		return nil, nil
	}
	clone := *e
	return &clone, nil
}

func (s *MemoryStorage) Put(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *e
	s.entries[e.Sequence] = &clone
	if e.Sequence > s.maxSeq {
		s.maxSeq = e.Sequence
	}
	return nil
}

// RedisStorage persists entries as sequence-keyed JSON blobs plus a head
// pointer, so the chain survives process restarts (spec §4.1
// "Bootstrapping"). Grounded on the teacher's core.RedisClient usage of
// go-redis for registry/discovery persistence.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = "secureyeoman:audit"
	}
	return &RedisStorage{client: client, prefix: prefix}
}

func (s *RedisStorage) key(seq int64) string {
	return fmt.Sprintf("%s:entry:%d", s.prefix, seq)
}

func (s *RedisStorage) headKey() string {
	return fmt.Sprintf("%s:head", s.prefix)
}

func (s *RedisStorage) Append(ctx context.Context, e *Entry) error {
	head, err := s.Head(ctx)
	if err != nil {
		return err
	}
	expected := int64(1)
	if head != nil {
		expected = head.Sequence + 1
	}
	if e.Sequence != expected {
		return fmt.Errorf("audit: out-of-order append: got sequence %d, expected %d", e.Sequence, expected)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(e.Sequence), data, 0)
	pipe.Set(ctx, s.headKey(), e.Sequence, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("audit: storage_unavailable: %w", err)
	}
	return nil
}

func (s *RedisStorage) Head(ctx context.Context) (*Entry, error) {
	seqStr, err := s.client.Get(ctx, s.headKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: storage_unavailable: %w", err)
	}
	var seq int64
	if _, err := fmt.Sscanf(seqStr, "%d", &seq); err != nil {
		return nil, err
	}
	return s.Get(ctx, seq)
}

func (s *RedisStorage) Range(ctx context.Context, from, to int64) ([]*Entry, error) {
	head, err := s.Head(ctx)
	if err != nil {
		return nil, err
	}
	if from <= 0 {
		from = 1
	}
	maxSeq := int64(0)
	if head != nil {
		maxSeq = head.Sequence
	}
	if to <= 0 || to > maxSeq {
		to = maxSeq
	}
	out := make([]*Entry, 0, to-from+1)
	for seq := from; seq <= to; seq++ {
		e, err := s.Get(ctx, seq)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *RedisStorage) Get(ctx context.Context, sequence int64) (*Entry, error) {
	data, err := s.client.Get(ctx, s.key(sequence)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: storage_unavailable: %w", err)
	}
	return decodeEntry([]byte(data))
}

// decodeEntry unmarshals an entry using json.Number for metadata values so
// integers survive the JSON round-trip as int64 rather than float64 (the
// canonical encoder rejects floats outright — see canonicalizeValue).
func decodeEntry(data []byte) (*Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var e Entry
	if err := dec.Decode(&e); err != nil {
		return nil, err
	}
	for k, v := range e.Metadata {
		if num, ok := v.(json.Number); ok {
			if n, err := num.Int64(); err == nil {
				e.Metadata[k] = n
			} else {
				e.Metadata[k] = num.String()
			}
		}
	}
	return &e, nil
}

func (s *RedisStorage) Put(ctx context.Context, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(e.Sequence), data, 0).Err()
}

var _ Storage = (*MemoryStorage)(nil)
var _ Storage = (*RedisStorage)(nil)
