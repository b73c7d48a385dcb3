package oauth2

import (
	"context"

	ninjaauth "github.com/devsnb/ninja-authentication"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type GoogleOAuth2 struct {
	*BaseOAuth2
}

func NewGoogleOAuth2(clientId string, clientSecret string, callbackUrl string, handleProfile ProfileHandler) *GoogleOAuth2 {
	out := &GoogleOAuth2{
		BaseOAuth2: newBaseOAuth2("google", clientId, clientSecret, callbackUrl, google.Endpoint, []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		}, handleProfile),
	}
	out.UserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	out.fetchProfile = out.getUserData
	return out
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail *bool  `json:"verified_email"`
	Name          string `json:"name"`
}

func (g *GoogleOAuth2) getUserData(ctx context.Context, token *oauth2.Token) (ninjaauth.FederatedProfile, error) {
	var info googleUserInfo
	if err := g.getJSON(ctx, g.UserInfoURL, token, &info); err != nil {
		return ninjaauth.FederatedProfile{}, err
	}
	// an unverified google address is not accepted for implicit linking
	if info.VerifiedEmail != nil && !*info.VerifiedEmail {
		info.Email = ""
	}
	return ninjaauth.FederatedProfile{Email: info.Email, DisplayName: info.Name}, nil
}
