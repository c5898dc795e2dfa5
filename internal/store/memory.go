package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store, used for tests and one-shot commands
type Memory struct {
	sessions map[string]Session
	tests    map[string]string
	mu       sync.RWMutex
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]Session),
		tests:    make(map[string]string),
	}
}

func (m *Memory) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) PutSession(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *s
	stored.UpdatedAt = time.Now().UTC()
	m.sessions[s.ID] = stored
	return nil
}

func (m *Memory) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

func (m *Memory) LoadTest(ctx context.Context, testID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.tests[testID]
	if !ok {
		return "", ErrNotFound
	}
	return payload, nil
}

func (m *Memory) SaveTest(ctx context.Context, testID, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tests[testID] = payload
	return nil
}

func (m *Memory) DeleteTest(ctx context.Context, testID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tests, testID)
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
