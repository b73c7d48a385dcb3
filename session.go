package ninjaauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"go.opentelemetry.io/otel/attribute"
)

// Outcome is the caller-visible result of a session transition.
type Outcome string

const (
	OutcomeAuthenticated     Outcome = "authenticated"
	OutcomeUnauthenticated   Outcome = "unauthenticated"
	OutcomeLoggedOut         Outcome = "logged_out"
	OutcomeRecoveryInitiated Outcome = "recovery_initiated"
	OutcomePasswordReset     Outcome = "password_reset"
	OutcomeSignedUp          Outcome = "signed_up"
)

const (
	defaultSessionUserKey    = "userID"
	defaultSessionCookieName = "ninja-auth"
)

// SessionManager binds transport sessions to users. Only the user id is
// stored in the session; Rehydrate resolves it back through the store on
// every request.
//
// Every method taking a context expects one that went through
// LoadAndSave (or scs Load), except DestroyUserSessions.
type SessionManager struct {
	Session *scs.SessionManager
	Store   UserStore
	Logger  *slog.Logger

	// Session key holding the user id. Defaults to "userID".
	UserKey string
}

// NewSessionManager wraps session. The cookie name defaults to
// "ninja-auth" unless the caller already changed it.
func NewSessionManager(session *scs.SessionManager, store UserStore) *SessionManager {
	if session.Cookie.Name == "" || session.Cookie.Name == "session" {
		session.Cookie.Name = defaultSessionCookieName
	}
	return &SessionManager{Session: session, Store: store, UserKey: defaultSessionUserKey}
}

func (m *SessionManager) userKey() string {
	if m.UserKey != "" {
		return m.UserKey
	}
	return defaultSessionUserKey
}

// LoadAndSave loads the session for each request and commits it afterwards.
func (m *SessionManager) LoadAndSave(next http.Handler) http.Handler {
	return m.Session.LoadAndSave(next)
}

// Establish moves the session to Authenticated for user. The session token
// is renewed first so a token planted before login is useless afterwards.
func (m *SessionManager) Establish(ctx context.Context, user *User) error {
	if err := m.Session.RenewToken(ctx); err != nil {
		return fmt.Errorf("failed to renew session token: %w", err)
	}
	m.Session.Put(ctx, m.userKey(), user.ID)
	return nil
}

// Login runs strategy and establishes a session for the user it returns.
func (m *SessionManager) Login(ctx context.Context, strategy Strategy, input AuthInput) (user *User, err error) {
	ctx, span := startSpan(ctx, "ninjaauth.SessionManager.Login", attribute.String("auth.strategy", strategy.Name()))
	defer func() { endSpan(span, err) }()

	user, err = strategy.Authenticate(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := m.Establish(ctx, user); err != nil {
		loggerOr(m.Logger).ErrorContext(ctx, "failed to establish session", "user_id", user.ID, "error", err)
		return nil, ErrStoreUnavailable
	}
	loggerOr(m.Logger).InfoContext(ctx, "user logged in", "user_id", user.ID, "strategy", strategy.Name())
	return user, nil
}

// UserID returns the id bound to the session, or "" when Anonymous.
func (m *SessionManager) UserID(ctx context.Context) string {
	return m.Session.GetString(ctx, m.userKey())
}

// Rehydrate returns the session's user, or nil when Anonymous. A user id
// that no longer resolves demotes the session to Anonymous.
func (m *SessionManager) Rehydrate(ctx context.Context) (*User, error) {
	id := m.UserID(ctx)
	if id == "" {
		return nil, nil
	}
	logger := loggerOr(m.Logger)
	user, err := findByID(ctx, m.Store, logger, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		logger.WarnContext(ctx, "session user no longer exists, demoting to anonymous", "user_id", id)
		m.Session.Remove(ctx, m.userKey())
		return nil, nil
	}
	return user, nil
}

// Destroy ends the current session.
func (m *SessionManager) Destroy(ctx context.Context) (Outcome, error) {
	userID := m.UserID(ctx)
	if err := m.Session.Destroy(ctx); err != nil {
		loggerOr(m.Logger).ErrorContext(ctx, "failed to destroy session", "user_id", userID, "error", err)
		return "", ErrStoreUnavailable
	}
	if userID != "" {
		loggerOr(m.Logger).InfoContext(ctx, "user logged out", "user_id", userID)
	}
	return OutcomeLoggedOut, nil
}

// DestroyUserSessions destroys every stored session bound to userID and
// returns how many were removed. The scs store must support iteration
// (memstore and goredisstore do).
func (m *SessionManager) DestroyUserSessions(ctx context.Context, userID string) (int, error) {
	destroyed := 0
	err := m.Session.Iterate(ctx, func(ctx context.Context) error {
		if m.Session.GetString(ctx, m.userKey()) != userID {
			return nil
		}
		destroyed++
		return m.Session.Destroy(ctx)
	})
	if err != nil {
		return destroyed, fmt.Errorf("failed to destroy sessions for user %s: %w", userID, err)
	}
	return destroyed, nil
}
