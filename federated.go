package ninjaauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
)

// FederatedStrategy resolves or provisions a user from an identity
// provider profile. Accounts are linked implicitly by email: a provider
// login for an email that already has a local account signs into that
// account.
type FederatedStrategy struct {
	Store  UserStore
	Hasher Hasher
	Logger *slog.Logger
}

func NewFederatedStrategy(store UserStore, hasher Hasher) *FederatedStrategy {
	return &FederatedStrategy{Store: store, Hasher: hasher}
}

func (s *FederatedStrategy) Name() string { return "federated" }

// Authenticate accepts a FederatedProfile. It is only reached after the
// provider round trip succeeded; denied consent never gets here.
func (s *FederatedStrategy) Authenticate(ctx context.Context, input AuthInput) (user *User, err error) {
	profile, ok := input.(FederatedProfile)
	if !ok {
		return nil, fmt.Errorf("federated strategy: unsupported input %T", input)
	}
	ctx, span := startSpan(ctx, "ninjaauth.FederatedStrategy.Authenticate",
		attribute.String("auth.provider", profile.Provider))
	defer func() { endSpan(span, err) }()

	if profile.Email == "" {
		return nil, ErrInvalidProfile
	}

	logger := loggerOr(s.Logger).With("provider", profile.Provider)
	user, err = findByEmail(ctx, s.Store, logger, profile.Email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		logger.InfoContext(ctx, "federated login into existing user", "user_id", user.ID)
		return user, nil
	}

	// The account gets a password nobody knows; it has no usable local
	// login until a reset is performed.
	secret, err := GenerateSecureToken(20)
	if err != nil {
		return nil, err
	}
	digest, err := s.Hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err = createUser(ctx, s.Store, logger, NewUser{
		Name:         profile.DisplayName,
		Email:        profile.Email,
		PasswordHash: digest,
	})
	if errors.Is(err, ErrDuplicateIdentity) {
		// lost a race with a concurrent first login for the same email
		return findExisting(ctx, s.Store, logger, profile.Email)
	}
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "provisioned federated user", "user_id", user.ID)
	return user, nil
}

func findExisting(ctx context.Context, store UserStore, logger *slog.Logger, email string) (*User, error) {
	user, err := findByEmail(ctx, store, logger, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrStoreUnavailable
	}
	return user, nil
}
