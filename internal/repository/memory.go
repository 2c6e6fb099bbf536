package repository

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

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// sweepInterval bounds how often writes walk the store for expired entries.
const sweepInterval = time.Minute

// MemoryStore is the in-process CacheStore. Expired entries are dropped on read
// and by a sweep that writes trigger at most once per sweepInterval.
type MemoryStore struct {
	entries    sync.Map
	rateMu     sync.Mutex
	rateLimits map[string]*rateLimitEntry
	now        func() time.Time

	sweepMu   sync.Mutex
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rateLimits: make(map[string]*rateLimitEntry),
		now:        time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := m.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	entry := val.(*memoryEntry)
	if entry.expired(m.now()) {
		m.entries.Delete(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := &memoryEntry{value: append([]byte(nil), value...)}
	now := m.now()
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	m.entries.Store(key, entry)
	m.maybeSweep(now)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.entries.Delete(key)
	return nil
}

func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	m.entries.Range(func(k, _ interface{}) bool {
		if key, ok := k.(string); ok && strings.HasPrefix(key, prefix) {
			m.entries.Delete(k)
		}
		return true
	})
	return nil
}

func (m *MemoryStore) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := m.now()
	m.maybeSweep(now)

	m.rateMu.Lock()
	defer m.rateMu.Unlock()

	entry, ok := m.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		m.rateLimits[key] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}

func (m *MemoryStore) maybeSweep(now time.Time) {
	m.sweepMu.Lock()
	if now.Sub(m.lastSweep) < sweepInterval {
		m.sweepMu.Unlock()
		return
	}
	m.lastSweep = now
	m.sweepMu.Unlock()

	m.entries.Range(func(k, v interface{}) bool {
		if v.(*memoryEntry).expired(now) {
			m.entries.CompareAndDelete(k, v)
		}
		return true
	})

	m.rateMu.Lock()
	for key, entry := range m.rateLimits {
		if now.After(entry.expiresAt) {
			delete(m.rateLimits, key)
		}
	}
	m.rateMu.Unlock()
}
