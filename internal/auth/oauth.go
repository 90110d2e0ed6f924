package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPI = "https://api.github.com"

// GitHubUser is the part of the GitHub /user response sign-in needs.
// GitHub returns a much larger object; only these fields are decoded.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID        int64  `json:"id"`         // stable numeric id
	Login     string `json:"login"`      // username, e.g. "octocat"
	Name      string `json:"name"`       // display name, often empty
	Email     string `json:"email"`      // public email, empty if hidden
	AvatarURL string `json:"avatar_url"` // becomes the profile picture link
}

// DisplayName prefers the profile name and falls back to the login.
func (u *GitHubUser) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Login
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHubProvider runs the OAuth authorization code flow against GitHub.
//
// AUTHORIZATION CODE FLOW:
//  1. HandleGitHubLogin redirects the browser to AuthURL with a random
//     state, which is also stored in a short-lived cookie.
//  2. The user approves (or denies) the request on GitHub.
//  3. GitHub redirects to the callback with a one-time "code" and the state.
//  4. The callback checks the state against the cookie, then Exchange
//     trades the code for an access token, server to server, using the
//     client secret.
//  5. Exchange calls the GitHub API with that token for the profile and
//     email. The access token is never sent to the browser.
type GitHubProvider struct {
	config  *oauth2.Config
	apiBase string
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// ClientID and ClientSecret come from an OAuth App registered at
// https://github.com/settings/developers. callbackURL must match the app's
// "Authorization callback URL" exactly, e.g.
// "http://localhost:8080/auth/github/callback".
//
// Scopes requested:
//   - read:user   the profile (login, name, avatar)
//   - user:email  the email list, including addresses hidden from the profile
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiBase: githubAPI,
	}
}

// AuthURL is where the browser goes to approve the login. state is echoed
// back on the callback and must be checked against the state cookie.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for the user's profile. When the
// public profile hides the email, the primary verified address is fetched
// from /user/emails; an account without one cannot sign in.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}
	client := p.config.Client(ctx, token)

	var user GitHubUser
	if err := getJSON(ctx, client, p.apiBase+"/user", &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	// The public email is unverified from our point of view; always prefer
	// the primary verified address when the scope allows reading it.
	var emails []githubEmail
	if err := getJSON(ctx, client, p.apiBase+"/user/emails", &emails); err == nil {
		for _, e := range emails {
			if e.Primary && e.Verified {
				user.Email = e.Email
				break
			}
		}
	}

	if user.Email == "" {
		return nil, fmt.Errorf("auth: GitHub account %s has no verified email", user.Login)
	}
	return &user, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("auth: building request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("auth: calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: %s returned status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("auth: decoding %s response: %w", url, err)
	}
	return nil
}
