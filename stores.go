package ninjaauth

import (
	"context"
	"time"
)

// User is the identity record shared by every flow.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser holds the fields of a user that does not exist yet. The store
// assigns the ID.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
}

// UserStore manages user records.
//
// FindByEmail and FindByID return ErrUserNotFound when nothing matches.
// Create returns ErrDuplicateIdentity when the email is already taken;
// callers must still check beforehand since not every backend enforces
// uniqueness atomically. Any other error means the store is unavailable.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, fields NewUser) (*User, error)
	Save(ctx context.Context, user *User) error
}
