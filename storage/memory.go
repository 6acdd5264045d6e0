// In-memory key-value storage.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions

package storage

import (
	"context"
	"sort"
	"sync"
)

// InMemoryKV implements KVStore using a map. Data is lost when the
// process terminates.
type InMemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewInMemoryKV creates a new in-memory store.
func NewInMemoryKV() *InMemoryKV {
	return &InMemoryKV{values: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (s *InMemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value.
func (s *InMemoryKV) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *InMemoryKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Keys lists stored keys in sorted order.
func (s *InMemoryKV) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op.
func (s *InMemoryKV) Close() error {
	return nil
}

var _ KVStore = (*InMemoryKV)(nil)
