// Package auth builds OAuth2 token sources for the activity services from
// credentials stored in the config file.
package auth

import (
	"golang.org/x/oauth2"
)

// Provider describes a service's OAuth endpoints
type Provider struct {
	Name     string
	AuthURL  string
	TokenURL string
	Scopes   []string
}

var (
	// Strava uses comma-separated scopes
	Strava = Provider{
		Name:     "strava",
		AuthURL:  "https://www.strava.com/oauth/authorize",
		TokenURL: "https://www.strava.com/oauth/token",
		Scopes:   []string{"read,activity:read_all"},
	}

	Smashrun = Provider{
		Name:     "smashrun",
		AuthURL:  "https://secure.smashrun.com/oauth2/authenticate",
		TokenURL: "https://secure.smashrun.com/oauth2/token",
		Scopes:   []string{"read_activity"},
	}
)

// Credentials holds the client and token values for one service
type Credentials struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	RefreshToken string
}

// NewOAuthConfig creates an oauth2.Config for the provider
func NewOAuthConfig(p Provider, creds Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthURL,
			TokenURL: p.TokenURL,
		},
		Scopes: p.Scopes,
	}
}

// Token builds the starting token from stored credentials. Without an
// expiry the token is refreshed on first use when a refresh token exists.
func (c Credentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	}
}
