package ninjaauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

const resetPasswordTemplate = "reset-password"

// ResetRequest is submitted to complete a password recovery.
type ResetRequest struct {
	Token           string
	Email           string
	Password        string
	ConfirmPassword string
}

// ResetMailData is the template data of the reset-password mail.
type ResetMailData struct {
	Name        string
	RecoveryURL string
	ExpiresIn   string
}

// RecoveryFlow runs the session-free forgot/reset password protocol.
type RecoveryFlow struct {
	Store  UserStore
	Hasher Hasher
	Tokens *TokenService

	// Mailer receives the reset-password message. Delivery is best effort
	// and runs after Initiate returned, so a registered email answers as
	// fast as an unknown one. Failures are only logged.
	Mailer MailDispatcher

	// Sessions, when set, is used to end every session of a user whose
	// password was reset.
	Sessions *SessionManager

	// BaseURL is prefixed to the recovery path, e.g. "https://ninja.example".
	BaseURL string

	// ResetPath is the path the recovery link points at. Defaults to
	// "/auth/reset-password".
	ResetPath string

	Logger *slog.Logger

	pending sync.WaitGroup
}

func (f *RecoveryFlow) recoveryURL(token string) string {
	path := f.ResetPath
	if path == "" {
		path = "/auth/reset-password"
	}
	return strings.TrimRight(f.BaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// Initiate starts a recovery for email. The result is the same whether or
// not the email is registered; only a registered email gets a mail.
func (f *RecoveryFlow) Initiate(ctx context.Context, email string) (outcome Outcome, err error) {
	ctx, span := startSpan(ctx, "ninjaauth.RecoveryFlow.Initiate")
	defer func() { endSpan(span, err) }()

	logger := loggerOr(f.Logger)
	user, err := findByEmail(ctx, f.Store, logger, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		logger.InfoContext(ctx, "password recovery requested for unknown email")
		return OutcomeRecoveryInitiated, nil
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	token, err := f.Tokens.Sign(RecoveryClaims{SubjectID: user.ID})
	if err != nil {
		logger.ErrorContext(ctx, "failed to sign recovery token", "user_id", user.ID, "error", err)
		return "", ErrTokenIssuanceFailed
	}

	f.dispatch(ctx, logger, MailMessage{
		To:       user.Email,
		Subject:  "Reset your password",
		Template: resetPasswordTemplate,
		Data: ResetMailData{
			Name:        user.Name,
			RecoveryURL: f.recoveryURL(token),
			ExpiresIn:   humanDuration(f.Tokens.MaxAge()),
		},
	})
	return OutcomeRecoveryInitiated, nil
}

// dispatch hands msg to the mailer in the background and logs a failure
// as mail_delivery_failed.
func (f *RecoveryFlow) dispatch(ctx context.Context, logger *slog.Logger, msg MailMessage) {
	if f.Mailer == nil {
		logger.WarnContext(ctx, "no mailer configured, dropping message", "template", msg.Template)
		return
	}
	ctx = context.WithoutCancel(ctx)
	f.pending.Add(1)
	go func() {
		defer f.pending.Done()
		if err := f.Mailer.Dispatch(ctx, msg); err != nil {
			logger.ErrorContext(ctx, "mail dispatch failed",
				"code", ErrCodeMailDeliveryFailed, "template", msg.Template, "error", err)
		}
	}()
}

// Wait blocks until every mail started by Initiate has been handed off or
// has failed. Call it before shutting down.
func (f *RecoveryFlow) Wait() {
	f.pending.Wait()
}

// humanDuration renders d for mail bodies, e.g. "1 hour" or "30 minutes".
func humanDuration(d time.Duration) string {
	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int64(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int64(d.Round(time.Minute)/time.Minute), "minute")
	default:
		return plural(int64(d.Round(time.Second)/time.Second), "second")
	}
}

// Complete replaces the password of the user the token was issued to. The
// submitted email must resolve to that same user.
func (f *RecoveryFlow) Complete(ctx context.Context, req ResetRequest) (user *User, err error) {
	ctx, span := startSpan(ctx, "ninjaauth.RecoveryFlow.Complete")
	defer func() { endSpan(span, err) }()

	claims, err := f.Tokens.Verify(req.Token)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}
	if req.Password == "" {
		return nil, NewAuthError(ErrCodeMissingField, "Password is required", "password")
	}
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordConfirmationMismatch
	}

	logger := loggerOr(f.Logger)
	subject, err := findByID(ctx, f.Store, logger, claims.SubjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, ErrInvalidOrExpiredToken
	}
	user, err = findByEmail(ctx, f.Store, logger, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.ID != subject.ID {
		logger.WarnContext(ctx, "recovery token used for another account", "token_subject", subject.ID)
		return nil, ErrIdentityMismatch
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	digest, err := f.Hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = digest
	if err := f.Store.Save(ctx, user); err != nil {
		logger.ErrorContext(ctx, "user store save failed", "user_id", user.ID, "error", err)
		return nil, ErrStoreUnavailable
	}

	if f.Sessions != nil {
		n, err := f.Sessions.DestroyUserSessions(ctx, user.ID)
		if err != nil {
			// the password is already replaced; the remaining sessions
			// expire on their own
			logger.ErrorContext(ctx, "failed to end sessions after password reset", "user_id", user.ID, "error", err)
		} else {
			logger.InfoContext(ctx, "ended sessions after password reset", "user_id", user.ID, "count", n)
		}
	}
	logger.InfoContext(ctx, "password reset", "user_id", user.ID)
	return user, nil
}
