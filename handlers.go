package ninjaauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError answers with the JSON form of err. Errors that are not an
// *AuthError never reach the client verbatim.
func writeError(w http.ResponseWriter, err error) {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "Internal server error",
			"code":  "internal",
		})
		return
	}
	body := map[string]any{
		"error": authErr.Message,
		"code":  authErr.Code,
	}
	if authErr.Field != "" {
		body["field"] = authErr.Field
	}
	writeJSON(w, StatusCode(authErr), body)
}

const maxFormMemory = 1 << 20

// readFields returns the named string fields of a form-encoded or JSON
// request body. Absent fields are "".
func readFields(r *http.Request, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		// ParseMultipartForm also parses urlencoded bodies
		if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, fmt.Errorf("error parsing form")
		}
		for _, name := range names {
			out[name] = r.FormValue(name)
		}
		return out, nil
	}

	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
		return nil, fmt.Errorf("invalid post body")
	}
	for _, name := range names {
		if v, ok := data[name].(string); ok {
			out[name] = v
		}
	}
	return out, nil
}

func badBody(err error) *AuthError {
	return NewAuthError(ErrCodeMissingField, err.Error(), "")
}

func (a *Auth) handleSignup(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(r, "name", "email", "password", "confirm_password")
	if err != nil {
		writeError(w, badBody(err))
		return
	}
	user, err := a.Local.Signup(r.Context(), SignupInput{
		Name:            strings.TrimSpace(f["name"]),
		Email:           strings.TrimSpace(f["email"]),
		Password:        f["password"],
		ConfirmPassword: f["confirm_password"],
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"outcome": OutcomeSignedUp,
		"user":    user,
	})
}

func (a *Auth) handleLogin(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(r, "email", "password")
	if err != nil {
		writeError(w, badBody(err))
		return
	}
	user, err := a.Sessions.Login(r.Context(), a.Local, PasswordCredentials{
		Email:    strings.TrimSpace(f["email"]),
		Password: f["password"],
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"outcome": OutcomeAuthenticated,
		"user":    user,
	})
}

func (a *Auth) handleLogout(w http.ResponseWriter, r *http.Request) {
	outcome, err := a.Sessions.Destroy(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if to := r.URL.Query().Get("to"); isLocalPath(to) {
		http.Redirect(w, r, to, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"outcome": outcome,
	})
}

func (a *Auth) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(r, "email")
	if err != nil {
		writeError(w, badBody(err))
		return
	}
	email := strings.TrimSpace(f["email"])
	if email == "" {
		writeError(w, NewAuthError(ErrCodeMissingField, "Email is required", "email"))
		return
	}
	outcome, err := a.Recovery.Initiate(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"outcome": outcome,
		"message": "If that email exists, a reset link has been sent",
	})
}

func (a *Auth) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(r, "token", "email", "password", "confirm_password")
	if err != nil {
		writeError(w, badBody(err))
		return
	}
	token := f["token"]
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	user, err := a.Recovery.Complete(r.Context(), ResetRequest{
		Token:           token,
		Email:           strings.TrimSpace(f["email"]),
		Password:        f["password"],
		ConfirmPassword: f["confirm_password"],
	})
	if err != nil {
		writeError(w, err)
		return
	}
	// the stored copy is gone already; this also expires the cookie
	if a.Sessions.UserID(r.Context()) == user.ID {
		if _, err := a.Sessions.Destroy(r.Context()); err != nil {
			loggerOr(a.Logger).WarnContext(r.Context(), "failed to end current session after reset", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"outcome": OutcomePasswordReset,
		"message": "Password reset successfully",
	})
}

func (a *Auth) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

// CompleteFederatedLogin is called by a provider once it obtained a
// profile. It logs the user in and redirects to the requested callback URL.
func (a *Auth) CompleteFederatedLogin(profile FederatedProfile, w http.ResponseWriter, r *http.Request) {
	if _, err := a.Sessions.Login(r.Context(), a.Federated, profile); err != nil {
		writeError(w, err)
		return
	}

	callbackURL := a.HomeURL
	if c, _ := r.Cookie(CallbackURLCookie); c != nil && isLocalPath(c.Value) {
		callbackURL = c.Value
	}
	http.SetCookie(w, &http.Cookie{
		Name:    CallbackURLCookie,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Now(),
	})
	http.Redirect(w, r, callbackURL, http.StatusFound)
}

// isLocalPath reports whether s is a same-origin path, so redirects cannot
// be pointed at another host.
func isLocalPath(s string) bool {
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/\\") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host == "" && u.Scheme == ""
}
