package stores

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	ninjaauth "github.com/devsnb/ninja-authentication"
)

// FSUser is the on-disk form of a user.
type FSUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *FSUser) toUser() *ninjaauth.User {
	return &ninjaauth.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// fsEmailIndex maps an email to the user that owns it.
type fsEmailIndex struct {
	Email  string `json:"email"`
	UserID string `json:"user_id"`
}

// FSUserStore stores users as JSON files.
//
// # File Structure
//
//	{StoragePath}/
//	├── users/
//	│   └── <id>.json        # FSUser
//	└── emails/
//	    └── <key>.json       # {"email": "...", "user_id": "<id>"}
//
// Email index files are created with O_EXCL, so two concurrent Create
// calls for one email cannot both succeed, even across processes sharing
// the directory. Save is last-write-wins.
type FSUserStore struct {
	StoragePath string
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

func (s *FSUserStore) getUserPath(userId string) string {
	// Base prevents path traversal through crafted ids
	return filepath.Join(s.StoragePath, "users", filepath.Base(userId)+".json")
}

func (s *FSUserStore) getEmailPath(email string) string {
	// emails are case-sensitive as stored, so the key is a reversible
	// encoding rather than a normalized form
	key := base64.RawURLEncoding.EncodeToString([]byte(email))
	return filepath.Join(s.StoragePath, "emails", key+".json")
}

func (s *FSUserStore) FindByID(ctx context.Context, id string) (*ninjaauth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ninjaauth.ErrUserNotFound
	}
	data, err := os.ReadFile(s.getUserPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ninjaauth.ErrUserNotFound
		}
		return nil, err
	}

	var user FSUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("corrupt user file %s: %w", id, err)
	}
	return user.toUser(), nil
}

func (s *FSUserStore) FindByEmail(ctx context.Context, email string) (*ninjaauth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if email == "" {
		return nil, ninjaauth.ErrUserNotFound
	}
	data, err := os.ReadFile(s.getEmailPath(email))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ninjaauth.ErrUserNotFound
		}
		return nil, err
	}

	var index fsEmailIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("corrupt email index for %s: %w", email, err)
	}
	return s.FindByID(ctx, index.UserID)
}

func (s *FSUserStore) Create(ctx context.Context, fields ninjaauth.NewUser) (*ninjaauth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &FSUser{
		ID:           uuid.NewString(),
		Name:         fields.Name,
		Email:        fields.Email,
		PasswordHash: fields.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.reserveEmail(user.Email, user.ID); err != nil {
		return nil, err
	}
	if err := s.writeUser(user); err != nil {
		os.Remove(s.getEmailPath(user.Email))
		return nil, err
	}
	return user.toUser(), nil
}

func (s *FSUserStore) Save(ctx context.Context, user *ninjaauth.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	existing, err := s.FindByID(ctx, user.ID)
	if err != nil {
		return err
	}

	if existing.Email != user.Email {
		if err := s.reserveEmail(user.Email, user.ID); err != nil {
			return err
		}
		if err := os.Remove(s.getEmailPath(existing.Email)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to release email index: %w", err)
		}
	}

	user.UpdatedAt = time.Now().UTC()
	return s.writeUser(&FSUser{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    existing.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
}

// reserveEmail creates the index file for email, failing with
// ErrDuplicateIdentity when it already exists.
func (s *FSUserStore) reserveEmail(email, userID string) error {
	path := s.getEmailPath(email)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fsEmailIndex{Email: email, UserID: userID}, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ninjaauth.ErrDuplicateIdentity
		}
		return fmt.Errorf("failed to create email index: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write email index: %w", err)
	}
	return f.Close()
}

func (s *FSUserStore) writeUser(user *FSUser) error {
	path := s.getUserPath(user.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}
