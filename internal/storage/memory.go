package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory ObjectStore for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores a copy of the data under the key.
func (m *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

// FirstByPrefix returns the lexicographically first object under the prefix.
func (m *MemoryStore) FirstByPrefix(ctx context.Context, prefix string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := m.keysWithPrefix(prefix)
	if len(keys) == 0 {
		return nil, ErrObjectNotFound
	}

	key := keys[0]
	return &Object{Key: key, Data: append([]byte(nil), m.objects[key]...)}, nil
}

// DeleteByPrefix removes every object under the prefix.
func (m *MemoryStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := m.keysWithPrefix(prefix)
	if len(keys) == 0 {
		return ErrObjectNotFound
	}

	for _, key := range keys {
		delete(m.objects, key)
	}
	return nil
}

// Len reports the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *MemoryStore) keysWithPrefix(prefix string) []string {
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
