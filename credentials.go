package ninjaauth

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// AuthInput is what a Strategy authenticates. It is implemented by
// PasswordCredentials and FederatedProfile.
type AuthInput interface {
	authInput()
}

// PasswordCredentials are submitted on local login.
type PasswordCredentials struct {
	Email    string
	Password string
}

// FederatedProfile is what an external identity provider vouches for after
// a successful authorization round trip.
type FederatedProfile struct {
	Provider    string
	Email       string
	DisplayName string
}

func (PasswordCredentials) authInput() {}
func (FederatedProfile) authInput()    {}

// Strategy turns an AuthInput into a User. Strategies never touch the
// session; SessionManager.Login does that once a strategy succeeds.
type Strategy interface {
	Name() string
	Authenticate(ctx context.Context, input AuthInput) (*User, error)
}

// SignupInput is submitted on sign-up. ConfirmPassword is optional; when
// present it must equal Password.
type SignupInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// SignupPolicy defines what is required for signup.
type SignupPolicy struct {
	RequireName         bool
	RequireConfirmation bool
	MinPasswordLength   int
}

// DefaultSignupPolicy only requires a well formed email and a non-empty
// password.
func DefaultSignupPolicy() SignupPolicy {
	return SignupPolicy{}
}

// Validate checks in against the policy and returns an *AuthError naming
// the offending field.
func (p SignupPolicy) Validate(in SignupInput) error {
	if p.RequireName && strings.TrimSpace(in.Name) == "" {
		return NewAuthError(ErrCodeMissingField, "Name is required", "name")
	}
	if in.Email == "" {
		return NewAuthError(ErrCodeMissingField, "Email is required", "email")
	}
	if !emailRegex.MatchString(in.Email) {
		return NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "email")
	}
	if in.Password == "" {
		return NewAuthError(ErrCodeMissingField, "Password is required", "password")
	}
	if p.MinPasswordLength > 0 && len(in.Password) < p.MinPasswordLength {
		return NewAuthError(ErrCodeWeakPassword, fmt.Sprintf("Password must be at least %d characters", p.MinPasswordLength), "password")
	}
	if p.RequireConfirmation && in.ConfirmPassword == "" {
		return NewAuthError(ErrCodeMissingField, "Password confirmation is required", "confirm_password")
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		return ErrPasswordConfirmationMismatch
	}
	return nil
}
