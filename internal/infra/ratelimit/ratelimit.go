// Package ratelimit throttles inbound webhook traffic per provider. The
// default limiter keeps token buckets in process; a Redis-backed sliding
// window can be swapped in when several instances share the ingest path.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter gates a single request for a key. Implementations must be safe for
// concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

type Config struct {
	PerSecond float64
	Burst     int
}

func DefaultConfig() Config {
	return Config{PerSecond: 25, Burst: 50}
}

// Manager maintains one token bucket per key, created lazily with
// double-checked locking so hot keys never contend on the write lock.
type Manager struct {
	cfg      Config
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

func NewManager(cfg Config) *Manager {
	if cfg.PerSecond <= 0 {
		cfg.PerSecond = DefaultConfig().PerSecond
	}
	if cfg.Burst < 1 {
		cfg.Burst = DefaultConfig().Burst
	}
	return &Manager{cfg: cfg, limiters: make(map[string]*rate.Limiter)}
}

func (m *Manager) limiter(key string) *rate.Limiter {
	m.mu.RLock()
	limiter, ok := m.limiters[key]
	m.mu.RUnlock()
	if ok {
		return limiter
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if limiter, ok = m.limiters[key]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(m.cfg.PerSecond), m.cfg.Burst)
	m.limiters[key] = limiter
	return limiter
}

func (m *Manager) Allow(_ context.Context, key string) bool {
	return m.limiter(key).Allow()
}

// Remove drops the bucket for a key. State for that key starts fresh on the
// next request.
func (m *Manager) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.limiters, key)
}
