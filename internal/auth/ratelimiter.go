package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter enforces a named rule against a (keyType, keyValue) pair,
// e.g. rule "auth_attempts" keyed by ("ip", "203.0.113.7"). Grounded on
// the teacher's dual in-memory/Redis limiter split (ui/security/
// inmemory_limiter.go fixed-window buckets, ui/security/redis_limiter.go
// sliding-window sorted sets).
type RateLimiter interface {
	Allow(ctx context.Context, rule, keyType, keyValue string) (bool, error)
}

// Rule configures one named limit.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// DefaultAuthAttemptsRule is spec §4.2's "5 failed attempts / 15 minutes
// per IP" login guard.
func DefaultAuthAttemptsRule() Rule {
	return Rule{Name: "auth_attempts", Limit: 5, Window: 15 * time.Minute}
}

// bucket is a fixed-window counter for one (rule, key) pair.
type bucket struct {
	mu        sync.Mutex
	count     int
	windowEnd time.Time
}

// InMemoryRateLimiter is a fixed-window limiter keyed on sync.Map
// buckets, directly grounded on ui/security/inmemory_limiter.go.
type InMemoryRateLimiter struct {
	rules   map[string]Rule
	buckets sync.Map // string(rule+":"+keyType+":"+keyValue) -> *bucket

	stopCleanup chan struct{}
}

func NewInMemoryRateLimiter(rules ...Rule) *InMemoryRateLimiter {
	rl := &InMemoryRateLimiter{rules: make(map[string]Rule), stopCleanup: make(chan struct{})}
	for _, r := range rules {
		rl.rules[r.Name] = r
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *InMemoryRateLimiter) Allow(_ context.Context, rule, keyType, keyValue string) (bool, error) {
	r, ok := rl.rules[rule]
	if !ok {
		return true, nil // unconfigured rules do not limit
	}
	key := bucketKey(rule, keyType, keyValue)
	now := time.Now()

	v, _ := rl.buckets.LoadOrStore(key, &bucket{windowEnd: now.Add(r.Window)})
	b := v.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()
	if now.After(b.windowEnd) {
		b.count = 0
		b.windowEnd = now.Add(r.Window)
	}
	if b.count >= r.Limit {
		return false, nil
	}
	b.count++
	return true, nil
}

func (rl *InMemoryRateLimiter) Stop() { close(rl.stopCleanup) }

func (rl *InMemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			rl.buckets.Range(func(k, v interface{}) bool {
				b := v.(*bucket)
				b.mu.Lock()
				expired := now.After(b.windowEnd)
				b.mu.Unlock()
				if expired {
					rl.buckets.Delete(k)
				}
				return true
			})
		case <-rl.stopCleanup:
			return
		}
	}
}

func bucketKey(rule, keyType, keyValue string) string {
	return fmt.Sprintf("%s:%s:%s", rule, keyType, keyValue)
}

// RedisRateLimiter is a sliding-window limiter backed by Redis sorted
// sets, grounded on ui/security/redis_limiter.go's EnhancedRedisRateLimiter.
type RedisRateLimiter struct {
	client *redis.Client
	rules  map[string]Rule
	prefix string
}

func NewRedisRateLimiter(client *redis.Client, prefix string, rules ...Rule) *RedisRateLimiter {
	rl := &RedisRateLimiter{client: client, prefix: prefix, rules: make(map[string]Rule)}
	for _, r := range rules {
		rl.rules[r.Name] = r
	}
	return rl
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, rule, keyType, keyValue string) (bool, error) {
	r, ok := rl.rules[rule]
	if !ok {
		return true, nil
	}
	key := fmt.Sprintf("%s:%s", rl.prefix, bucketKey(rule, keyType, keyValue))
	now := time.Now()
	windowStart := now.Add(-r.Window)

	pipe := rl.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", windowStart.UnixNano()))
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, fmt.Errorf("auth: rate limiter pipeline: %w", err)
	}

	if int(card.Val()) >= r.Limit {
		return false, nil
	}

	member := fmt.Sprintf("%d-%d", now.UnixNano(), now.Nanosecond())
	addPipe := rl.client.TxPipeline()
	addPipe.ZAdd(ctx, key, &redis.Z{Score: float64(now.UnixNano()), Member: member})
	addPipe.Expire(ctx, key, r.Window)
	if _, err := addPipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("auth: rate limiter record: %w", err)
	}
	return true, nil
}

var (
	_ RateLimiter = (*InMemoryRateLimiter)(nil)
	_ RateLimiter = (*RedisRateLimiter)(nil)
)
