// Package keylock provides a fixed set of mutexes addressed by string keys
package keylock

import (
	"hash/fnv"
	"sync"
)

// DefaultStripes is the number of mutexes used when none is configured
const DefaultStripes = 64

// Striped serializes work per key by hashing keys onto a fixed pool of mutexes.
// Two keys may share a stripe; the same key always maps to the same stripe.
type Striped struct {
	stripes []sync.Mutex
}

// New creates a striped lock with n stripes
func New(n int) *Striped {
	if n <= 0 {
		n = DefaultStripes
	}

	return &Striped{stripes: make([]sync.Mutex, n)}
}

// Lock acquires the mutex for key and returns the function that releases it
func (s *Striped) Lock(key string) func() {
	mu := &s.stripes[s.index(key)]
	mu.Lock()

	return mu.Unlock
}

func (s *Striped) index(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))

	return int(h.Sum32() % uint32(len(s.stripes))) //nolint:gosec // stripe count is small and positive
}
