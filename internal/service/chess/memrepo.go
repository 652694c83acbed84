package chess

import (
	"context"
	"sync"
)

// memoryStore keeps the snapshot in process memory; used when Redis is not configured.
type memoryStore struct {
	mu   sync.RWMutex
	snap *Snapshot
}

func NewMemoryStore() SessionStore {
	return &memoryStore{}
}

func (m *memoryStore) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.clone(), nil
}

func (m *memoryStore) Save(ctx context.Context, snap *Snapshot) error {
	m.mu.Lock()
	m.snap = snap.clone()
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.snap = nil
	m.mu.Unlock()
	return nil
}
