//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	ninjaauth "github.com/devsnb/ninja-authentication"
)

// AutoMigrate runs database migrations for the users table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{})
}

// UserStore implements ninjaauth.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*ninjaauth.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*ninjaauth.User, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *UserStore) first(ctx context.Context, query string, arg string) (*ninjaauth.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ninjaauth.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) Create(ctx context.Context, fields ninjaauth.NewUser) (*ninjaauth.User, error) {
	model := &UserModel{
		ID:           uuid.NewString(),
		Name:         fields.Name,
		Email:        fields.Email,
		PasswordHash: fields.PasswordHash,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ninjaauth.ErrDuplicateIdentity
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) Save(ctx context.Context, user *ninjaauth.User) error {
	// a map so that cleared fields are written too
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&UserModel{ID: user.ID}).Updates(map[string]any{
		"name":          user.Name,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"updated_at":    now,
	})
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return ninjaauth.ErrDuplicateIdentity
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ninjaauth.ErrUserNotFound
	}
	user.UpdatedAt = now
	return nil
}

// isDuplicateKey recognizes unique violations whether or not the dialector
// translates errors.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
