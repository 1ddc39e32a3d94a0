package tokenstore

import "sync"

var _ Store = (*Memory)(nil)

// Memory is an in-process Store. It is safe for concurrent use: readers
// share a read lock, so concurrent requests never block each other.
type Memory struct {
	mu    sync.RWMutex
	token string
	set   bool
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Token implements Store.
func (m *Memory) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.set
}

// SetToken implements Store.
func (m *Memory) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.set = token, true
	return nil
}

// RemoveToken implements Store.
func (m *Memory) RemoveToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.set = "", false
	return nil
}

// HasToken implements Store.
func (m *Memory) HasToken() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set
}
