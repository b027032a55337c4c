package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process. It backs single-instance deployments
// that run without Redis.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Identity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Identity)}
}

func (m *MemoryStore) Load(_ context.Context, key string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, id *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = *id
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
