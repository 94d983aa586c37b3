package tokenstore

import (
	"context"
	"sync"
)

// MemoryBackend keeps the record in process memory only.
type MemoryBackend struct {
	mu  sync.Mutex
	rec Record
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(context.Context) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec, nil
}

func (m *MemoryBackend) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	m.rec = rec
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Clear(context.Context) error {
	m.mu.Lock()
	m.rec = Record{}
	m.mu.Unlock()
	return nil
}
