package oauth2

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	ninjaauth "github.com/devsnb/ninja-authentication"
	"golang.org/x/oauth2"
)

// ProfileHandler receives the profile of a completed provider round trip.
// Auth.CompleteFederatedLogin satisfies it.
type ProfileHandler func(profile ninjaauth.FederatedProfile, w http.ResponseWriter, r *http.Request)

// BaseOAuth2 is the provider independent half of an authorization code
// flow. It serves "/" (redirect to the provider) and "/callback/" relative
// to wherever it is mounted.
type BaseOAuth2 struct {
	Provider     string
	ClientId     string
	ClientSecret string
	CallbackURL  string

	// UserInfoURL is the profile endpoint queried with the access token.
	// Can be overridden for testing.
	UserInfoURL string

	// AuthFailureUrl, when set, receives a redirect after a failed code
	// exchange or profile fetch. Otherwise the callback answers 401.
	AuthFailureUrl string

	HandleProfile ProfileHandler

	// HTTPClient is used for the code exchange and profile requests.
	// Defaults to http.DefaultClient.
	HTTPClient *http.Client

	Logger *slog.Logger

	oauthConfig  oauth2.Config
	fetchProfile func(ctx context.Context, token *oauth2.Token) (ninjaauth.FederatedProfile, error)
}

func newBaseOAuth2(provider, clientId, clientSecret, callbackUrl string, endpoint oauth2.Endpoint, scopes []string, handleProfile ProfileHandler) *BaseOAuth2 {
	return &BaseOAuth2{
		Provider:      provider,
		ClientId:      clientId,
		ClientSecret:  clientSecret,
		CallbackURL:   callbackUrl,
		HandleProfile: handleProfile,
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
	}
}

// SetHTTPClient overrides the client used to talk to the provider.
func (b *BaseOAuth2) SetHTTPClient(client *http.Client) {
	b.HTTPClient = client
}

// SetOAuthEndpoint overrides the provider's authorization and token URLs.
func (b *BaseOAuth2) SetOAuthEndpoint(endpoint oauth2.Endpoint) {
	b.oauthConfig.Endpoint = endpoint
}

// Config returns the underlying oauth2 configuration.
func (b *BaseOAuth2) Config() *oauth2.Config {
	return &b.oauthConfig
}

func (b *BaseOAuth2) Handler() http.Handler {
	return b
}

func (b *BaseOAuth2) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch strings.Trim(r.URL.Path, "/") {
	case "":
		OauthRedirector(&b.oauthConfig)(w, r)
	case "callback":
		b.handleCallback(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (b *BaseOAuth2) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *BaseOAuth2) httpClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}

// exchangeContext makes the oauth2 package use HTTPClient.
func (b *BaseOAuth2) exchangeContext(ctx context.Context) context.Context {
	if b.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, b.HTTPClient)
	}
	return ctx
}

func (b *BaseOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState, _ := r.Cookie(stateCookie)
	if oauthState == nil {
		http.Error(w, "OauthState is nil", http.StatusBadRequest)
		return
	}
	clearStateCookie(w)
	if subtle.ConstantTimeCompare([]byte(r.FormValue("state")), []byte(oauthState.Value)) != 1 {
		http.Error(w, fmt.Sprintf("invalid oauth %s state", b.Provider), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	logger := b.logger().With("provider", b.Provider)
	if errParam := r.FormValue("error"); errParam != "" {
		logger.InfoContext(ctx, "provider denied authorization", "reason", errParam)
		b.fail(w, r)
		return
	}

	token, err := b.oauthConfig.Exchange(b.exchangeContext(ctx), r.FormValue("code"))
	if err != nil {
		logger.InfoContext(ctx, "invalid code exchange", "error", err)
		b.fail(w, r)
		return
	}
	profile, err := b.fetchProfile(ctx, token)
	if err != nil {
		logger.WarnContext(ctx, "failed to fetch provider profile", "error", err)
		b.fail(w, r)
		return
	}
	profile.Provider = b.Provider
	if b.HandleProfile == nil {
		http.Error(w, "login not configured", http.StatusInternalServerError)
		return
	}
	b.HandleProfile(profile, w, r)
}

func (b *BaseOAuth2) fail(w http.ResponseWriter, r *http.Request) {
	if b.AuthFailureUrl != "" {
		http.Redirect(w, r, b.AuthFailureUrl, http.StatusTemporaryRedirect)
		return
	}
	http.Error(w, fmt.Sprintf("%s login failed", b.Provider), http.StatusUnauthorized)
}

// getJSON fetches url with the access token and decodes the body into out.
func (b *BaseOAuth2) getJSON(ctx context.Context, url string, token *oauth2.Token, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	response, err := b.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("failed getting user info: %w", err)
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("failed read response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("user info request returned %d", response.StatusCode)
	}
	if err := json.Unmarshal(contents, out); err != nil {
		return fmt.Errorf("failed to parse user info: %w", err)
	}
	return nil
}
