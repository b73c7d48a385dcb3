// Package storetest holds behaviour checks shared by every UserStore
// implementation.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ninjaauth "github.com/devsnb/ninja-authentication"
)

// RunUserStoreTests exercises newStore against the UserStore contract.
// newStore must return an empty store for every call.
func RunUserStoreTests(t *testing.T, newStore func(t *testing.T) ninjaauth.UserStore) {
	ctx := context.Background()

	t.Run("create then find", func(t *testing.T) {
		store := newStore(t)
		created, err := store.Create(ctx, ninjaauth.NewUser{Name: "Alice", Email: "a@x.com", PasswordHash: "digest-1"})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.Equal(t, "a@x.com", created.Email)
		assert.Equal(t, "digest-1", created.PasswordHash)

		byEmail, err := store.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)
		assert.Equal(t, "Alice", byEmail.Name)

		byID, err := store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", byID.Email)
		assert.Equal(t, "digest-1", byID.PasswordHash)
	})

	t.Run("missing users are ErrUserNotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.FindByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, ninjaauth.ErrUserNotFound)
		_, err = store.FindByID(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ninjaauth.ErrUserNotFound)
	})

	t.Run("emails are case sensitive", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Create(ctx, ninjaauth.NewUser{Email: "Case@x.com", PasswordHash: "d"})
		require.NoError(t, err)
		_, err = store.FindByEmail(ctx, "case@x.com")
		assert.ErrorIs(t, err, ninjaauth.ErrUserNotFound)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Create(ctx, ninjaauth.NewUser{Email: "dup@x.com", PasswordHash: "d1"})
		require.NoError(t, err)
		_, err = store.Create(ctx, ninjaauth.NewUser{Email: "dup@x.com", PasswordHash: "d2"})
		assert.ErrorIs(t, err, ninjaauth.ErrDuplicateIdentity)

		user, err := store.FindByEmail(ctx, "dup@x.com")
		require.NoError(t, err)
		assert.Equal(t, "d1", user.PasswordHash)
	})

	t.Run("concurrent creates yield one user", func(t *testing.T) {
		store := newStore(t)
		const n = 8
		var wg sync.WaitGroup
		var mu sync.Mutex
		created, duplicates := 0, 0
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Create(ctx, ninjaauth.NewUser{Email: "race@x.com", PasswordHash: "d"})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					created++
				case errors.Is(err, ninjaauth.ErrDuplicateIdentity):
					duplicates++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, created)
		assert.Equal(t, n-1, duplicates)
	})

	t.Run("save replaces password hash", func(t *testing.T) {
		store := newStore(t)
		user, err := store.Create(ctx, ninjaauth.NewUser{Email: "s@x.com", PasswordHash: "old"})
		require.NoError(t, err)

		user.PasswordHash = "new"
		require.NoError(t, store.Save(ctx, user))

		reloaded, err := store.FindByEmail(ctx, "s@x.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, reloaded.ID)
		assert.Equal(t, "new", reloaded.PasswordHash)
		assert.False(t, reloaded.CreatedAt.IsZero())
	})
}
