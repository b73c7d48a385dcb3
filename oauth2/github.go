package oauth2

import (
	"context"

	ninjaauth "github.com/devsnb/ninja-authentication"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

type GithubOAuth2 struct {
	*BaseOAuth2

	// EmailsURL lists the account's addresses. It is queried when the
	// public profile hides the email.
	EmailsURL string
}

func NewGithubOAuth2(clientId string, clientSecret string, callbackUrl string, handleProfile ProfileHandler) *GithubOAuth2 {
	out := &GithubOAuth2{
		BaseOAuth2: newBaseOAuth2("github", clientId, clientSecret, callbackUrl, github.Endpoint, []string{
			"read:user", "user:email",
		}, handleProfile),
		EmailsURL: "https://api.github.com/user/emails",
	}
	out.UserInfoURL = "https://api.github.com/user"
	out.fetchProfile = out.getUserData
	return out
}

type githubUser struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *GithubOAuth2) getUserData(ctx context.Context, token *oauth2.Token) (ninjaauth.FederatedProfile, error) {
	var user githubUser
	if err := g.getJSON(ctx, g.UserInfoURL, token, &user); err != nil {
		return ninjaauth.FederatedProfile{}, err
	}
	profile := ninjaauth.FederatedProfile{Email: user.Email, DisplayName: user.Name}
	if profile.DisplayName == "" {
		profile.DisplayName = user.Login
	}
	if profile.Email != "" || g.EmailsURL == "" {
		return profile, nil
	}

	var emails []githubEmail
	if err := g.getJSON(ctx, g.EmailsURL, token, &emails); err != nil {
		return ninjaauth.FederatedProfile{}, err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			profile.Email = e.Email
			break
		}
	}
	return profile, nil
}
