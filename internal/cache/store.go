package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dervan/noteforge/pkg/types"
)

// Entry is one persisted cache record. Entries are append-only: they are
// never mutated after the first write.
type Entry struct {
	Key       string
	Sections  []types.Section
	CreatedAt time.Time
}

// Store is the cache's persistence boundary. Implementations must be safe
// for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, entry Entry) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// MemoryStore is a process-local Store, used when persistence is disabled
// or the on-disk store cannot be opened, and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[key]
	return entry, ok, nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.Key]; !ok {
		m.entries[entry.Key] = entry
	}
	return nil
}

// Len implements Store.
func (m *MemoryStore) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}
