//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"

	ninjaauth "github.com/devsnb/ninja-authentication"
)

// Kind constants for Datastore entities
const (
	KindUser      = "User"
	KindUserEmail = "UserEmail"
)

// UserStore implements ninjaauth.UserStore using Google Cloud Datastore
type UserStore struct {
	client    *datastore.Client
	namespace string
}

// NewUserStore creates a new Datastore-backed UserStore
func NewUserStore(client *datastore.Client, namespace string) *UserStore {
	return &UserStore{client: client, namespace: namespace}
}

func (s *UserStore) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*ninjaauth.User, error) {
	if id == "" {
		return nil, ninjaauth.ErrUserNotFound
	}
	var entity UserEntity
	if err := s.client.Get(ctx, s.namespacedKey(KindUser, id), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, ninjaauth.ErrUserNotFound
		}
		return nil, err
	}
	return entity.ToUser(), nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*ninjaauth.User, error) {
	if email == "" {
		return nil, ninjaauth.ErrUserNotFound
	}
	var index UserEmailEntity
	if err := s.client.Get(ctx, s.namespacedKey(KindUserEmail, email), &index); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, ninjaauth.ErrUserNotFound
		}
		return nil, err
	}
	return s.FindByID(ctx, index.UserID)
}

func (s *UserStore) Create(ctx context.Context, fields ninjaauth.NewUser) (*ninjaauth.User, error) {
	now := time.Now().UTC()
	userKey := s.namespacedKey(KindUser, uuid.NewString())
	emailKey := s.namespacedKey(KindUserEmail, fields.Email)
	entity := &UserEntity{
		Key:          userKey,
		Name:         fields.Name,
		Email:        fields.Email,
		PasswordHash: fields.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing UserEmailEntity
		err := tx.Get(emailKey, &existing)
		if err == nil {
			return ninjaauth.ErrDuplicateIdentity
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		if _, err := tx.Put(emailKey, &UserEmailEntity{Key: emailKey, UserID: userKey.Name, CreatedAt: now}); err != nil {
			return err
		}
		_, err = tx.Put(userKey, entity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity.ToUser(), nil
}

func (s *UserStore) Save(ctx context.Context, user *ninjaauth.User) error {
	userKey := s.namespacedKey(KindUser, user.ID)
	now := time.Now().UTC()

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity UserEntity
		if err := tx.Get(userKey, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return ninjaauth.ErrUserNotFound
			}
			return err
		}

		if entity.Email != user.Email {
			newKey := s.namespacedKey(KindUserEmail, user.Email)
			var taken UserEmailEntity
			err := tx.Get(newKey, &taken)
			if err == nil {
				return ninjaauth.ErrDuplicateIdentity
			}
			if !errors.Is(err, datastore.ErrNoSuchEntity) {
				return err
			}
			if _, err := tx.Put(newKey, &UserEmailEntity{Key: newKey, UserID: user.ID, CreatedAt: now}); err != nil {
				return err
			}
			if err := tx.Delete(s.namespacedKey(KindUserEmail, entity.Email)); err != nil {
				return err
			}
		}

		entity.Name = user.Name
		entity.Email = user.Email
		entity.PasswordHash = user.PasswordHash
		entity.UpdatedAt = now
		entity.Version++
		_, err := tx.Put(userKey, &entity)
		return err
	})
	if err != nil {
		return err
	}
	user.UpdatedAt = now
	return nil
}
