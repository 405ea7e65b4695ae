package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayGuard remembers consumed signatures.
type ReplayGuard interface {
	// Claim records key for ttl and reports whether it was not already recorded.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

const replayKeyPrefix = "garden:sig:"

// RedisReplayGuard shares consumed signatures across every API instance.
type RedisReplayGuard struct {
	client *redis.Client
}

func NewRedisReplayGuard(client *redis.Client) *RedisReplayGuard {
	return &RedisReplayGuard{client: client}
}

func (g *RedisReplayGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, replayKeyPrefix+key, 1, ttl).Result()
}

// MemoryReplayGuard is the single-process guard used with the SQL backends.
type MemoryReplayGuard struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	pruneAt int
	now     func() time.Time
}

func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{seen: make(map[string]time.Time), pruneAt: 1024, now: time.Now}
}

func (g *MemoryReplayGuard) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if exp, ok := g.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.seen[key] = now.Add(ttl)

	if len(g.seen) >= g.pruneAt {
		for k, exp := range g.seen {
			if !now.Before(exp) {
				delete(g.seen, k)
			}
		}
		g.pruneAt = max(1024, 2*len(g.seen))
	}
	return true, nil
}
