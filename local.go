package ninjaauth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
)

// LocalStrategy authenticates email + password against the user store and
// registers new local accounts.
type LocalStrategy struct {
	Store  UserStore
	Hasher Hasher
	Policy SignupPolicy
	Logger *slog.Logger

	dummyOnce sync.Once
	dummy     string
}

func NewLocalStrategy(store UserStore, hasher Hasher) *LocalStrategy {
	return &LocalStrategy{Store: store, Hasher: hasher, Policy: DefaultSignupPolicy()}
}

func (s *LocalStrategy) Name() string { return "local" }

// Authenticate accepts PasswordCredentials. An unknown email and a wrong
// password produce the same ErrInvalidCredentials.
func (s *LocalStrategy) Authenticate(ctx context.Context, input AuthInput) (user *User, err error) {
	creds, ok := input.(PasswordCredentials)
	if !ok {
		return nil, fmt.Errorf("local strategy: unsupported input %T", input)
	}
	ctx, span := startSpan(ctx, "ninjaauth.LocalStrategy.Authenticate")
	defer func() { endSpan(span, err) }()

	if creds.Email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	logger := loggerOr(s.Logger)
	user, err = findByEmail(ctx, s.Store, logger, creds.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// burn one verification so unknown emails cost the same as known ones
		s.Hasher.Verify(s.dummyDigest(), creds.Password)
		logger.InfoContext(ctx, "local login failed", "reason", "unknown_email")
		return nil, ErrInvalidCredentials
	}
	if !s.Hasher.Verify(user.PasswordHash, creds.Password) {
		logger.InfoContext(ctx, "local login failed", "reason", "password_mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	span.SetAttributes(attribute.String("user.id", user.ID))
	return user, nil
}

func (s *LocalStrategy) dummyDigest() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.Hasher.Hash("ninja-auth-dummy-password")
	})
	return s.dummy
}

// Signup validates in and creates a local user. The email is checked
// before insert since stores are not required to enforce uniqueness
// atomically.
func (s *LocalStrategy) Signup(ctx context.Context, in SignupInput) (user *User, err error) {
	ctx, span := startSpan(ctx, "ninjaauth.LocalStrategy.Signup")
	defer func() { endSpan(span, err) }()

	if err := s.Policy.Validate(in); err != nil {
		return nil, err
	}

	logger := loggerOr(s.Logger)
	existing, err := findByEmail(ctx, s.Store, logger, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateIdentity
	}

	digest, err := s.Hasher.Hash(in.Password)
	if err != nil {
		logger.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err = createUser(ctx, s.Store, logger, NewUser{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: digest,
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "created local user", "user_id", user.ID)
	return user, nil
}
