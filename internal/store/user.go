package store

import (
	"context"
	"sync"
	"time"

	"github.com/helpdesk-ai/support-platform/internal/model"
)

// UserStore holds user documents. Registration and login live outside this
// service; users are seeded or mirrored from the identity system.
type UserStore struct {
	mu   sync.RWMutex
	docs map[string]*model.User
}

// NewUserStore creates an empty user store.
func NewUserStore() *UserStore {
	return &UserStore{
		docs: make(map[string]*model.User),
	}
}

// Create inserts a new user.
func (s *UserStore) Create(ctx context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[user.ID]; exists {
		return ErrDuplicate
	}
	stored := user
	s.docs[user.ID] = &stored
	return nil
}

// Get returns a copy of a user.
func (s *UserStore) Get(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	doc := *user
	return &doc, nil
}

// Update applies fn to a user.
func (s *UserStore) Update(ctx context.Context, id string, fn func(*model.User) error) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(user); err != nil {
		return nil, err
	}

	doc := *user
	return &doc, nil
}

// SetOnline updates a user's online flag; going offline records last-seen.
func (s *UserStore) SetOnline(ctx context.Context, id string, online bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	user.IsOnline = online
	if !online {
		seen := at
		user.LastSeen = &seen
	}
	return nil
}
