package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayWindow is how long a seen event key is remembered. Correctness
// requires it to exceed any real at-least-once redelivery interval.
const ReplayWindow = 24 * time.Hour

// DefaultReplayCapacity caps replay guard memory under event floods.
const DefaultReplayCapacity = 10000

// ReplayStore remembers processed event keys for the replay window.
// CheckAndRecord must be atomic: it returns true and records the key when it
// has not been seen, false when it has.
type ReplayStore interface {
	CheckAndRecord(ctx context.Context, eventKey string, now time.Time) (bool, error)
}

// MemoryReplayGuard is the single-process reference store: a bounded map with
// lazy pruning of expired entries and oldest-first eviction at capacity.
type MemoryReplayGuard struct {
	mu       sync.Mutex
	window   time.Duration
	capacity int
	seenAt   map[string]time.Time
	order    []string
}

func NewMemoryReplayGuard(window time.Duration, capacity int) *MemoryReplayGuard {
	if window <= 0 {
		window = ReplayWindow
	}
	if capacity <= 0 {
		capacity = DefaultReplayCapacity
	}
	return &MemoryReplayGuard{
		window:   window,
		capacity: capacity,
		seenAt:   make(map[string]time.Time),
	}
}

func (g *MemoryReplayGuard) CheckAndRecord(_ context.Context, eventKey string, now time.Time) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune(now)

	if _, seen := g.seenAt[eventKey]; seen {
		return false, nil
	}

	for len(g.seenAt) >= g.capacity {
		g.evictOldest()
	}

	g.seenAt[eventKey] = now
	g.order = append(g.order, eventKey)
	return true, nil
}

// Len reports the number of remembered event keys.
func (g *MemoryReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seenAt)
}

func (g *MemoryReplayGuard) prune(now time.Time) {
	kept := g.order[:0]
	for _, key := range g.order {
		seen, ok := g.seenAt[key]
		if !ok {
			continue
		}
		if now.Sub(seen) > g.window {
			delete(g.seenAt, key)
			continue
		}
		kept = append(kept, key)
	}
	g.order = kept
}

func (g *MemoryReplayGuard) evictOldest() {
	for len(g.order) > 0 {
		oldest := g.order[0]
		g.order = g.order[1:]
		if _, ok := g.seenAt[oldest]; ok {
			delete(g.seenAt, oldest)
			return
		}
	}
}

// RedisReplayGuard shares the replay window across instances. SETNX with a
// TTL gives the same atomic check-then-insert the in-memory guard has.
type RedisReplayGuard struct {
	client *redis.Client
	window time.Duration
}

func NewRedisReplayGuard(client *redis.Client, window time.Duration) *RedisReplayGuard {
	if window <= 0 {
		window = ReplayWindow
	}
	return &RedisReplayGuard{client: client, window: window}
}

func (g *RedisReplayGuard) CheckAndRecord(ctx context.Context, eventKey string, now time.Time) (bool, error) {
	return g.client.SetNX(ctx, "webhook:replay:"+eventKey, now.UnixMilli(), g.window).Result()
}
