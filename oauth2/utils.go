package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	ninjaauth "github.com/devsnb/ninja-authentication"
	"golang.org/x/oauth2"
)

const stateCookie = "oauthstate"

// State cookies only need to outlive one round trip to the provider.
const stateCookieLifetime = 10 * time.Minute

func generateStateOauthCookie(w http.ResponseWriter) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(stateCookieLifetime),
		MaxAge:   int(stateCookieLifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}

func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:    stateCookie,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Now(),
	})
}

// OauthRedirector starts an authorization round trip: it stores a random
// state (and the optional callbackURL query parameter) in cookies and
// redirects to the provider's consent page.
func OauthRedirector(oauthConfig *oauth2.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if callbackURL := r.URL.Query().Get("callbackURL"); callbackURL != "" {
			http.SetCookie(w, &http.Cookie{
				Name:     ninjaauth.CallbackURLCookie,
				Value:    callbackURL,
				Path:     "/",
				Expires:  time.Now().Add(stateCookieLifetime),
				MaxAge:   int(stateCookieLifetime.Seconds()),
				HttpOnly: true,
			})
		}
		oauthState, err := generateStateOauthCookie(w)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to generate oauth state", "error", err)
			http.Error(w, "could not start login", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, oauthConfig.AuthCodeURL(oauthState), http.StatusFound)
	}
}
