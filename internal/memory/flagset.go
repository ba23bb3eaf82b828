package memory

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"
)

// FlaggedSet is the persisted set of memory ids flagged by the quick
// check, consumed and partially cleared by deep consolidation (spec §4.3
// step 6, §5 "flagged-ids set (persisted; in-memory copy guarded by a
// lock)").
type FlaggedSet struct {
	mu     sync.Mutex
	ids    map[string]bool
	client *redis.Client
	key    string
}

// NewFlaggedSet constructs a flagged set. A nil client keeps the set
// in-process only, matching the in-memory storage default described in
// spec §6 when no Redis URL is configured.
func NewFlaggedSet(client *redis.Client, key string) *FlaggedSet {
	fs := &FlaggedSet{ids: make(map[string]bool), client: client, key: key}
	if client != nil {
		if members, err := client.SMembers(context.Background(), key).Result(); err == nil {
			for _, m := range members {
				fs.ids[m] = true
			}
		}
	}
	return fs
}

func (f *FlaggedSet) Add(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[id] = true
	if f.client != nil {
		f.client.SAdd(context.Background(), f.key, id)
	}
}

// Snapshot returns a point-in-time copy of the flagged ids, used by
// ConsolidationManager.Run so that flags added mid-run are preserved for the
// next pass (spec §5).
func (f *FlaggedSet) Snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.ids))
	for id := range f.ids {
		out = append(out, id)
	}
	return out
}

// ClearSubset removes exactly the given ids, leaving any ids flagged
// since the snapshot was taken untouched.
func (f *FlaggedSet) ClearSubset(ids []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.ids, id)
	}
	if f.client != nil && len(ids) > 0 {
		members := make([]interface{}, len(ids))
		for i, id := range ids {
			members[i] = id
		}
		f.client.SRem(context.Background(), f.key, members...)
	}
}

func (f *FlaggedSet) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids)
}
