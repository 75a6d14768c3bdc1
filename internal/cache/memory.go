package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Cache used for tests and single-node deployments
// (CACHE_BACKEND=memory). It has no native batching; Batch returns the
// sequential fallback.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests use it to step past TTLs.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Get(_ context.Context, ns Namespace, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[ns.Key(key)]
	now := m.now()
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if now.After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, ns.Key(key))
		m.mu.Unlock()
		return nil, false, nil
	}
	cp := make([]byte, len(entry.value))
	copy(cp, entry.value)
	return cp, true, nil
}

func (m *Memory) Set(_ context.Context, ns Namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ns.TTL()
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.mu.Lock()
	m.entries[ns.Key(key)] = memoryEntry{value: cp, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, ns Namespace, key string) error {
	m.mu.Lock()
	delete(m.entries, ns.Key(key))
	m.mu.Unlock()
	return nil
}

func (m *Memory) Batch() Batch {
	return NewSequentialBatch(m)
}
