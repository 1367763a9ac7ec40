package state

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store in process memory, for dev mode and tests.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore creates a MemoryStore with the default TTL.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]time.Time),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
}

// Issue records a new state value. Expired values left unconsumed are swept here.
func (m *MemoryStore) Issue(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for v, expiresAt := range m.states {
		if !now.Before(expiresAt) {
			delete(m.states, v)
		}
	}

	value := uuid.NewString()
	m.states[value] = now.Add(m.ttl)
	return value, nil
}

func (m *MemoryStore) Consume(ctx context.Context, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt, ok := m.states[value]
	if !ok {
		return ErrInvalidState
	}
	delete(m.states, value)

	if !m.now().Before(expiresAt) {
		return ErrInvalidState
	}
	return nil
}
