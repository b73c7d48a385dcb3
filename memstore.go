package ninjaauth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryUserStore implements UserStore with in-process maps. Everything is
// lost when the process exits; it is meant for development and tests.
type MemoryUserStore struct {
	mutex   sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	s.mutex.RLock()
	user, ok := s.byID[id]
	s.mutex.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mutex.RLock()
	id, ok := s.byEmail[email]
	s.mutex.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *MemoryUserStore) Create(ctx context.Context, fields NewUser) (*User, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, taken := s.byEmail[fields.Email]; taken {
		return nil, ErrDuplicateIdentity
	}
	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Name:         fields.Name,
		Email:        fields.Email,
		PasswordHash: fields.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[user.ID] = user
	s.byEmail[user.Email] = user.ID
	return &user, nil
}

func (s *MemoryUserStore) Save(ctx context.Context, user *User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	existing, ok := s.byID[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if existing.Email != user.Email {
		if _, taken := s.byEmail[user.Email]; taken {
			return ErrDuplicateIdentity
		}
		delete(s.byEmail, existing.Email)
		s.byEmail[user.Email] = user.ID
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now().UTC()
	s.byID[user.ID] = *user
	return nil
}

// Delete removes a user. It exists for tests and admin tooling; no flow
// deletes users.
func (s *MemoryUserStore) Delete(ctx context.Context, id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if user, ok := s.byID[id]; ok {
		delete(s.byEmail, user.Email)
		delete(s.byID, id)
	}
}
