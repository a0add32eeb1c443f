package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLCache records that an alert key was seen, for the cooldown window.
// SetIfAbsent reports true when the key was not already present.
type TTLCache interface {
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryCache is the single-instance TTLCache. The clock is injected so
// cooldown behavior is testable; expired entries are swept opportunistically
// on insert.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{entries: make(map[string]time.Time), now: now}
}

func (m *MemoryCache) SetIfAbsent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.now()
	for k, exp := range m.entries {
		if t.After(exp) {
			delete(m.entries, k)
		}
	}

	if exp, ok := m.entries[key]; ok && t.Before(exp) {
		return false, nil
	}
	m.entries[key] = t.Add(ttl)
	return true, nil
}

// RedisCache shares the cooldown window across instances.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (r *RedisCache) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.rdb.SetNX(ctx, "alertdedup:"+key, "1", ttl).Result()
}

// Deduper suppresses identical alerts within the cooldown window. Critical
// alerts always pass, and so does anything when the cache itself errors —
// losing a duplicate is better than losing an alert.
type Deduper struct {
	cache    TTLCache
	cooldown time.Duration
}

func NewDeduper(cache TTLCache, cooldown time.Duration) *Deduper {
	return &Deduper{cache: cache, cooldown: cooldown}
}

func (d *Deduper) Allow(ctx context.Context, key string, sev Severity) bool {
	if sev == SeverityCritical {
		return true
	}
	ok, err := d.cache.SetIfAbsent(ctx, key, d.cooldown)
	if err != nil {
		return true
	}
	return ok
}
