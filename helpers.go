package ninjaauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/devsnb/ninja-authentication")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err (if any) and ends the span. Caller-visible auth
// failures are expected outcomes and are not marked as span errors.
func endSpan(span trace.Span, err error) {
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			span.SetAttributes(attribute.String("auth.outcome", authErr.Code))
		}
		if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrTokenIssuanceFailed) || authErr == nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// findByEmail resolves email to a user. A missing user is (nil, nil); any
// store failure is logged and replaced with ErrStoreUnavailable so storage
// details never reach the caller.
func findByEmail(ctx context.Context, store UserStore, logger *slog.Logger, email string) (*User, error) {
	user, err := store.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		logger.ErrorContext(ctx, "user store lookup failed", "op", "find_by_email", "error", err)
		return nil, ErrStoreUnavailable
	}
	return user, nil
}

func findByID(ctx context.Context, store UserStore, logger *slog.Logger, id string) (*User, error) {
	user, err := store.FindByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		logger.ErrorContext(ctx, "user store lookup failed", "op", "find_by_id", "user_id", id, "error", err)
		return nil, ErrStoreUnavailable
	}
	return user, nil
}

// createUser inserts fields, passing ErrDuplicateIdentity through.
func createUser(ctx context.Context, store UserStore, logger *slog.Logger, fields NewUser) (*User, error) {
	user, err := store.Create(ctx, fields)
	if errors.Is(err, ErrDuplicateIdentity) {
		return nil, ErrDuplicateIdentity
	}
	if err != nil {
		logger.ErrorContext(ctx, "user store create failed", "error", err)
		return nil, ErrStoreUnavailable
	}
	return user, nil
}

// GenerateSecureToken returns n cryptographically random bytes, hex encoded.
func GenerateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
