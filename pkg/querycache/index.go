package querycache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Index is one key to entry map paired with a key to stored-at map.
// Implementations must keep both maps in lockstep: Put writes both and
// Remove deletes both. Removing a missing key is not an error.
type Index interface {
	// Get returns the entry and the time it was stored
	Get(ctx context.Context, key string) (*Entry, time.Time, bool, error)
	// StoredAt returns the stored-at time for key
	StoredAt(ctx context.Context, key string) (time.Time, bool, error)
	// Put stores entry under key
	Put(ctx context.Context, key string, entry *Entry, storedAt time.Time) error
	// Remove deletes key from both maps
	Remove(ctx context.Context, key string) error
	// Len returns the number of stored keys
	Len(ctx context.Context) (int, error)
	// SampleKeys returns up to n keys, oldest first
	SampleKeys(ctx context.Context, n int) ([]string, error)
	// Flush removes every key
	Flush(ctx context.Context) error
}

// MemoryIndex is a process-local Index
type MemoryIndex struct {
	mu       sync.RWMutex
	values   map[string]*Entry
	storedAt map[string]time.Time
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		values:   make(map[string]*Entry),
		storedAt: make(map[string]time.Time),
	}
}

// Get implements Index
func (m *MemoryIndex) Get(_ context.Context, key string) (*Entry, time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.values[key]
	if !ok {
		return nil, time.Time{}, false, nil
	}

	return entry, m.storedAt[key], true, nil
}

// StoredAt implements Index
func (m *MemoryIndex) StoredAt(_ context.Context, key string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	at, ok := m.storedAt[key]

	return at, ok, nil
}

// Put implements Index
func (m *MemoryIndex) Put(_ context.Context, key string, entry *Entry, storedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = entry
	m.storedAt[key] = storedAt

	return nil
}

// Remove implements Index
func (m *MemoryIndex) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	delete(m.storedAt, key)

	return nil
}

// Len implements Index
func (m *MemoryIndex) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.values), nil
}

// SampleKeys implements Index
func (m *MemoryIndex) SampleKeys(_ context.Context, n int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.storedAt))
	for k := range m.storedAt {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		ti, tj := m.storedAt[keys[i]], m.storedAt[keys[j]]
		if ti.Equal(tj) {
			return keys[i] < keys[j]
		}

		return ti.Before(tj)
	})

	if len(keys) > n {
		keys = keys[:n]
	}

	return keys, nil
}

// Flush implements Index
func (m *MemoryIndex) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values = make(map[string]*Entry)
	m.storedAt = make(map[string]time.Time)

	return nil
}
