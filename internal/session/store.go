package session

import (
	"context"
	"sync"
	"time"
)

// Store persists the session between process runs. Getters return zero
// values, not errors, when nothing is stored.
type Store interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	User(ctx context.Context) (*User, error)
	SetUser(ctx context.Context, u User) error
	VerifiedAt(ctx context.Context) (time.Time, error)
	SetVerifiedAt(ctx context.Context, t time.Time) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	token      string
	user       *User
	verifiedAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Token(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *MemoryStore) SetToken(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) User(context.Context) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil, nil
	}
	u := *m.user
	return &u, nil
}

func (m *MemoryStore) SetUser(_ context.Context, u User) error {
	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) VerifiedAt(context.Context) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.verifiedAt, nil
}

func (m *MemoryStore) SetVerifiedAt(_ context.Context, t time.Time) error {
	m.mu.Lock()
	m.verifiedAt = t
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.verifiedAt = time.Time{}
	m.mu.Unlock()
	return nil
}
