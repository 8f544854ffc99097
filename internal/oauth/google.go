// Package oauth wraps the external identity provider handshake. The
// provider is an explicitly constructed value passed into handlers;
// there is no process-wide strategy registration.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Profile is the subset of provider userinfo the identity resolver
// needs: a stable external id plus the email and display name used
// for linking or account creation.
type Profile struct {
	ProviderID string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

// Provider performs the OAuth code exchange and userinfo fetch
// against Google. UserinfoURL is a field so tests can point the
// provider at a fake endpoint.
type Provider struct {
	Config      *oauth2.Config
	UserinfoURL string
}

// NewGoogleProvider builds a provider from explicit credentials. The
// requested scopes cover profile and email, which is everything the
// identity resolver consumes.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *Provider {
	return &Provider{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		UserinfoURL: googleUserinfoURL,
	}
}

// AuthURL returns the provider consent URL for the given anti-forgery
// state value.
func (p *Provider) AuthURL(state string) string {
	return p.Config.AuthCodeURL(state)
}

// FetchProfile exchanges the callback code for a token and retrieves
// the user's profile. Any failure in the exchange or the userinfo
// call fails the whole handshake; there is no partial result.
func (p *Provider) FetchProfile(ctx context.Context, code string) (Profile, error) {
	tok, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("code exchange: %w", err)
	}
	client := p.Config.Client(ctx, tok)
	resp, err := client.Get(p.UserinfoURL)
	if err != nil {
		return Profile{}, fmt.Errorf("userinfo fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("userinfo fetch: unexpected status %d", resp.StatusCode)
	}
	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Profile{}, fmt.Errorf("userinfo decode: %w", err)
	}
	if profile.ProviderID == "" || profile.Email == "" {
		return Profile{}, fmt.Errorf("userinfo missing id or email")
	}
	return profile, nil
}
