package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/archetype-engine/pkg/state"
)

// MemoryStorage is an in-process Storage for tests and single-node runs.
// Sessions are deep-copied in and out so callers never share state.
type MemoryStorage struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*state.SessionState
	locks     map[uuid.UUID]struct{}
	pingError error
}

// Ensure MemoryStorage implements Storage interface
var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[uuid.UUID]*state.SessionState),
		locks:    make(map[uuid.UUID]struct{}),
	}
}

// SetPingError configures the store to fail on ping with the given error
func (m *MemoryStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) SaveSession(ctx context.Context, st *state.SessionState) error {
	if st == nil {
		return errors.New("session state cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[st.ID] = st.DeepCopy()
	return nil
}

func (m *MemoryStorage) LoadSession(ctx context.Context, id uuid.UUID) (*state.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return st.DeepCopy(), nil
}

func (m *MemoryStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStorage) TryLock(ctx context.Context, id uuid.UUID) (func(), bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[id]; held {
		return nil, false, nil
	}
	m.locks[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.locks, id)
			m.mu.Unlock()
		})
	}, true, nil
}

// SessionCount returns the number of stored sessions (for testing)
func (m *MemoryStorage) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
