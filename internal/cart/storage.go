package cart

import (
	"context"
	"sync"
)

// Storage is the durable key/value area a cart is persisted to.
// Read reports found=false, with no error, when the key was never written.
type Storage interface {
	Read(ctx context.Context, key string) (value string, found bool, err error)
	Write(ctx context.Context, key, value string) error
}

// MemoryStorage keeps entries in process memory. It backs the "memory" cart
// backend and the tests.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) Read(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Write(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// MemoryBackend hands out one MemoryStorage per session. Entries live until
// Release is called, which the API server does when a session goes idle.
type MemoryBackend struct {
	mu       sync.Mutex
	sessions map[string]*MemoryStorage
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]*MemoryStorage)}
}

func (b *MemoryBackend) ForSession(sessionID string) Storage {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[sessionID]
	if !ok {
		s = NewMemoryStorage()
		b.sessions[sessionID] = s
	}
	return s
}

// Release forgets the session's storage.
func (b *MemoryBackend) Release(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
}

func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}
