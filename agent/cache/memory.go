package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

const defaultSweepInterval = time.Minute

// MemoryStore is an in-process Store. Expired entries are dropped when read
// and, at most once per sweep interval, by a full sweep during Set.
type MemoryStore struct {
	mu            sync.RWMutex
	entries       map[string]memoryEntry
	now           func() time.Time
	sweepInterval time.Duration
	lastSweep     time.Time
}

type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, mainly for expiry tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSweepInterval sets how often Set scans for expired entries.
// Zero or less sweeps on every Set.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(m *MemoryStore) {
		m.sweepInterval = d
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		entries:       make(map[string]memoryEntry),
		now:           time.Now,
		sweepInterval: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastSweep = m.now()
	return m
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		if current, still := m.entries[key]; still && current.expiresAt.Equal(entry.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := m.now()
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Sub(m.lastSweep) >= m.sweepInterval {
		m.sweepLocked(now)
	}
	m.entries[key] = entry
	return nil
}

// sweepLocked drops every expired entry. m.mu must be held.
func (m *MemoryStore) sweepLocked(now time.Time) {
	for key, entry := range m.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(m.entries, key)
		}
	}
	m.lastSweep = now
}

func (m *MemoryStore) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
