package ninjaauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

type currentUserKey struct{}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, currentUserKey{}, user)
}

// UserFromContext returns the user bound by ExtractUser or RequireUser. An
// anonymous request has no user; there is no placeholder identity.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(currentUserKey{}).(*User)
	return user, ok && user != nil
}

type Middleware struct {
	Sessions *SessionManager
	Logger   *slog.Logger

	// LoginURL, when set, makes RequireUser redirect anonymous requests
	// there instead of answering 401.
	LoginURL string

	// Query parameter carrying the original path on redirect. Defaults to
	// "callbackURL".
	CallbackURLParam string
}

func (a *Middleware) callbackParam() string {
	if a.CallbackURLParam != "" {
		return a.CallbackURLParam
	}
	return "callbackURL"
}

// Gate returns the authenticated user or ErrUnauthenticated.
func (a *Middleware) Gate(ctx context.Context) (*User, error) {
	if user, ok := UserFromContext(ctx); ok {
		return user, nil
	}
	user, err := a.Sessions.Rehydrate(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// ExtractUser binds the current user to the request context if and only if
// the session is Authenticated. It never rejects a request.
func (a *Middleware) ExtractUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.Sessions.Rehydrate(r.Context())
		if err != nil {
			loggerOr(a.Logger).WarnContext(r.Context(), "could not resolve session user", "error", err)
		}
		if user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser short-circuits anonymous requests with a redirect to LoginURL
// or a 401, and otherwise runs next with the user bound.
func (a *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.Gate(r.Context())
		if err == nil {
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
			return
		}
		if !errors.Is(err, ErrUnauthenticated) {
			writeError(w, err)
			return
		}
		if a.LoginURL != "" {
			encoded := strings.ReplaceAll(url.QueryEscape(r.URL.Path), "+", "%20")
			http.Redirect(w, r, fmt.Sprintf("%s?%s=%s", a.LoginURL, a.callbackParam(), encoded), http.StatusFound)
			return
		}
		writeError(w, ErrUnauthenticated)
	})
}
