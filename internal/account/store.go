package account

import (
	"context"
	"sync"

	"github.com/p-n-ai/tsea/internal/progress"
)

// Store persists users. Emails are stored normalized and are unique.
type Store interface {
	Create(ctx context.Context, u User) error
	ByID(ctx context.Context, id string) (User, error)
	ByEmail(ctx context.Context, email string) (User, error)
	SetTier(ctx context.Context, id string, tier progress.Tier) error
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]User
	byEmail map[string]string
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryStore) ByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStore) ByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *MemoryStore) SetTier(_ context.Context, id string, tier progress.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Tier = tier
	s.users[id] = u
	return nil
}
