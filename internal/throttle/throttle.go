package throttle

import (
    "context"
    "sync"
    "time"

    redis "github.com/redis/go-redis/v9"
)

// Limiter is a keyed last-seen gate with TTL semantics, used to cap how
// often request-path triggers may fire a recomputation per town.
type Limiter interface {
    // Allow records the key and returns true if it has not been seen
    // within ttl. On backend failure it fails open.
    Allow(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Memory is the single-process implementation. Correct only when the
// deployment is guaranteed single-instance; multi-process topologies use
// the Redis limiter.
type Memory struct {
    mu   sync.Mutex
    seen map[string]time.Time
    now  func() time.Time
}

func NewMemory() *Memory {
    return &Memory{seen: map[string]time.Time{}, now: time.Now}
}

func (m *Memory) Allow(ctx context.Context, key string, ttl time.Duration) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    now := m.now()
    if last, ok := m.seen[key]; ok && now.Sub(last) < ttl {
        return false, nil
    }
    // Opportunistic prune so the map tracks active keys only.
    for k, last := range m.seen {
        if now.Sub(last) >= ttl {
            delete(m.seen, k)
        }
    }
    m.seen[key] = now
    return true, nil
}

// Redis implements Limiter over SET NX with expiry.
type Redis struct {
    rdb *redis.Client
}

func NewRedis(url string) (*Redis, error) {
    opt, err := redis.ParseURL(url)
    if err != nil {
        return nil, err
    }
    return &Redis{rdb: redis.NewClient(opt)}, nil
}

func (r *Redis) Allow(ctx context.Context, key string, ttl time.Duration) (bool, error) {
    ok, err := r.rdb.SetNX(ctx, "towngraph:seen:"+key, 1, ttl).Result()
    if err != nil {
        return true, err
    }
    return ok, nil
}
