package ninjaauth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
)

// CallbackURLCookie holds the path a federated login returns to.
const CallbackURLCookie = "oauthCallbackURL"

// Auth wires the strategies, the session manager and the recovery flow to
// HTTP routes.
type Auth struct {
	Sessions   *SessionManager
	Local      *LocalStrategy
	Federated  *FederatedStrategy
	Recovery   *RecoveryFlow
	Middleware *Middleware
	Logger     *slog.Logger

	// HomeURL is where a federated login lands when no callback URL was
	// requested. Defaults to "/".
	HomeURL string

	router *mux.Router
}

// NewAuth builds an Auth whose components share store, hasher and the scs
// session manager. baseURL is used to build recovery links.
func NewAuth(store UserStore, hasher Hasher, tokens *TokenService, session *scs.SessionManager, mailer MailDispatcher, baseURL string) *Auth {
	sessions := NewSessionManager(session, store)
	a := &Auth{
		Sessions:  sessions,
		Local:     NewLocalStrategy(store, hasher),
		Federated: NewFederatedStrategy(store, hasher),
		Recovery: &RecoveryFlow{
			Store:    store,
			Hasher:   hasher,
			Tokens:   tokens,
			Mailer:   mailer,
			Sessions: sessions,
			BaseURL:  baseURL,
		},
		Middleware: &Middleware{Sessions: sessions},
	}
	return a.EnsureDefaults()
}

// EnsureDefaults fills unset optional fields and propagates Logger to the
// components that have none.
func (a *Auth) EnsureDefaults() *Auth {
	if a.HomeURL == "" {
		a.HomeURL = "/"
	}
	if a.Logger == nil {
		return a
	}
	if a.Sessions != nil && a.Sessions.Logger == nil {
		a.Sessions.Logger = a.Logger
	}
	if a.Local != nil && a.Local.Logger == nil {
		a.Local.Logger = a.Logger
	}
	if a.Federated != nil && a.Federated.Logger == nil {
		a.Federated.Logger = a.Logger
	}
	if a.Recovery != nil && a.Recovery.Logger == nil {
		a.Recovery.Logger = a.Logger
	}
	if a.Middleware != nil && a.Middleware.Logger == nil {
		a.Middleware.Logger = a.Logger
	}
	return a
}

// Router returns the route table so applications can mount their own
// handlers next to the auth routes.
func (a *Auth) Router() *mux.Router {
	return a.setupRoutes().router
}

// Handler returns the routes wrapped in session loading and current user
// binding.
func (a *Auth) Handler() http.Handler {
	a.setupRoutes()
	return a.Sessions.LoadAndSave(a.Middleware.ExtractUser(a.router))
}

// AddProvider mounts a federated provider under /auth/<name>. The handler
// sees paths relative to that prefix ("/" to start, "/callback/" on return).
func (a *Auth) AddProvider(name string, handler http.Handler) *Auth {
	a.setupRoutes()
	prefix := "/auth/" + strings.Trim(name, "/")
	a.router.PathPrefix(prefix).Handler(http.StripPrefix(prefix, handler))
	return a
}

func (a *Auth) setupRoutes() *Auth {
	if a.router != nil {
		return a
	}
	a.EnsureDefaults()
	r := mux.NewRouter()
	r.HandleFunc("/auth/sign-up", a.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", a.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", a.handleLogout).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/auth/forgot-password", a.handleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/auth/reset-password", a.handleResetPassword).Methods(http.MethodPost)
	r.Handle("/auth/me", a.Middleware.RequireUser(http.HandlerFunc(a.handleMe))).Methods(http.MethodGet)
	a.router = r
	return a
}
