// Package urlcache caches signed image download URLs.
//
// Both backends treat the cache as an optimization: a failed lookup is a
// miss and a failed store is logged, never returned.
package urlcache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type entry struct {
	url     string
	expires time.Time
}

// Memory is an in-process cache. Expired entries are invisible to Get and
// removed by Sweep.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory returns an empty cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

// Get returns the cached URL for key if it has not expired.
func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || !m.now().Before(e.expires) {
		return "", false
	}
	return e.url, true
}

// Set stores url under key for ttl.
func (m *Memory) Set(_ context.Context, key, url string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	m.mu.Lock()
	m.entries[key] = entry{url: url, expires: m.now().Add(ttl)}
	m.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep drops expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration) {
	slog.Info("url cache sweeper started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("url cache sweeper stopped")
			return
		case <-ticker.C:
			if removed := m.Sweep(); removed > 0 {
				slog.Debug("url cache swept", "removed", removed, "remaining", m.Len())
			}
		}
	}
}
