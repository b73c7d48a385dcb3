package ninjaauth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	na "github.com/devsnb/ninja-authentication"
)

// cheap parameters so tests do not spend seconds hashing
func testHasher(t *testing.T) *na.Argon2Hasher {
	t.Helper()
	h, err := na.NewArgon2Hasher(na.Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("Failed to create hasher: %v", err)
	}
	return h
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingMailer keeps every dispatched message.
type recordingMailer struct {
	mu       sync.Mutex
	messages []na.MailMessage
	err      error
}

func (m *recordingMailer) Dispatch(ctx context.Context, msg na.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.err
}

func (m *recordingMailer) sent() []na.MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]na.MailMessage(nil), m.messages...)
}

// failingStore fails every call.
type failingStore struct{}

var errBackendDown = errors.New("connection refused")

func (failingStore) FindByEmail(context.Context, string) (*na.User, error) { return nil, errBackendDown }
func (failingStore) FindByID(context.Context, string) (*na.User, error)    { return nil, errBackendDown }
func (failingStore) Create(context.Context, na.NewUser) (*na.User, error) {
	return nil, errBackendDown
}
func (failingStore) Save(context.Context, *na.User) error { return errBackendDown }

// testEnv is a fully wired Auth over in-memory backends.
type testEnv struct {
	Store   *na.MemoryUserStore
	Hasher  *na.Argon2Hasher
	Tokens  *na.TokenService
	Session *scs.SessionManager
	Mailer  *recordingMailer
	Auth    *na.Auth
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ms := memstore.NewWithCleanupInterval(0)
	session := scs.New()
	session.Store = ms
	session.Lifetime = 100 * time.Minute

	env := &testEnv{
		Store:   na.NewMemoryUserStore(),
		Hasher:  testHasher(t),
		Tokens:  na.NewTokenService([]byte("test-secret"), time.Hour),
		Session: session,
		Mailer:  &recordingMailer{},
	}
	env.Auth = na.NewAuth(env.Store, env.Hasher, env.Tokens, session, env.Mailer, "http://ninja.test")
	env.Auth.Logger = quietLogger()
	env.Auth.EnsureDefaults()
	return env
}

// createUser stores a local user with password.
func (e *testEnv) createUser(t *testing.T, name, email, password string) *na.User {
	t.Helper()
	digest, err := e.Hasher.Hash(password)
	if err != nil {
		t.Fatalf("Failed to hash: %v", err)
	}
	user, err := e.Store.Create(context.Background(), na.NewUser{Name: name, Email: email, PasswordHash: digest})
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

// sessionCtx returns a context carrying a fresh scs session.
func (e *testEnv) sessionCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, err := e.Session.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	return ctx
}

// loggedInSession logs user in on a new session and commits it. It returns
// the session token.
func (e *testEnv) loggedInSession(t *testing.T, email, password string) string {
	t.Helper()
	ctx := e.sessionCtx(t)
	if _, err := e.Auth.Sessions.Login(ctx, e.Auth.Local, na.PasswordCredentials{Email: email, Password: password}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	token, _, err := e.Session.Commit(ctx)
	if err != nil {
		t.Fatalf("Failed to commit session: %v", err)
	}
	return token
}

func (e *testEnv) sessionUserID(t *testing.T, token string) string {
	t.Helper()
	ctx, err := e.Session.Load(context.Background(), token)
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	return e.Auth.Sessions.UserID(ctx)
}

// sentMail waits for background dispatches and returns the recorded mail.
func (e *testEnv) sentMail() []na.MailMessage {
	e.Auth.Recovery.Wait()
	return e.Mailer.sent()
}
