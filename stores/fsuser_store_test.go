package stores

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ninjaauth "github.com/devsnb/ninja-authentication"
	"github.com/devsnb/ninja-authentication/stores/storetest"
)

func TestFSUserStore(t *testing.T) {
	storetest.RunUserStoreTests(t, func(t *testing.T) ninjaauth.UserStore {
		return NewFSUserStore(t.TempDir())
	})
}

func TestFSUserStoreLayout(t *testing.T) {
	dir := t.TempDir()
	store := NewFSUserStore(dir)
	ctx := context.Background()

	user, err := store.Create(ctx, ninjaauth.NewUser{Name: "Alice", Email: "a@x.com", PasswordHash: "digest"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "users", user.ID+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"password_hash": "digest"`)

	entries, err := os.ReadDir(filepath.Join(dir, "emails"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFSUserStoreSaveMovesEmailIndex(t *testing.T) {
	store := NewFSUserStore(t.TempDir())
	ctx := context.Background()

	user, err := store.Create(ctx, ninjaauth.NewUser{Email: "old@x.com", PasswordHash: "d"})
	require.NoError(t, err)
	other, err := store.Create(ctx, ninjaauth.NewUser{Email: "taken@x.com", PasswordHash: "d"})
	require.NoError(t, err)

	user.Email = "taken@x.com"
	assert.ErrorIs(t, store.Save(ctx, user), ninjaauth.ErrDuplicateIdentity)

	user.Email = "new@x.com"
	require.NoError(t, store.Save(ctx, user))

	_, err = store.FindByEmail(ctx, "old@x.com")
	assert.ErrorIs(t, err, ninjaauth.ErrUserNotFound)
	found, err := store.FindByEmail(ctx, "new@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	found, err = store.FindByEmail(ctx, "taken@x.com")
	require.NoError(t, err)
	assert.Equal(t, other.ID, found.ID)
}

func TestFSUserStoreRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store := NewFSUserStore(filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.json"), []byte(`{"id":"secret"}`), 0644))

	_, err := store.FindByID(context.Background(), "../../secret")
	assert.ErrorIs(t, err, ninjaauth.ErrUserNotFound)
}
