package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"runjournal/internal/logging"
)

// ErrNoToken is returned when neither an access token nor a refresh token is configured
var ErrNoToken = errors.New("no access or refresh token configured")

// expiryBuffer refreshes tokens this long before they expire
const expiryBuffer = 60 * time.Second

// TokenSource hands out a valid token for one provider, refreshing through
// the provider's token endpoint when needed. onRefresh, if set, is called
// with each newly obtained token.
type TokenSource struct {
	provider  Provider
	config    *oauth2.Config
	token     *oauth2.Token
	onRefresh func(*oauth2.Token) error
	mu        sync.Mutex
}

// NewTokenSource creates a TokenSource from stored credentials
func NewTokenSource(p Provider, creds Credentials, onRefresh func(*oauth2.Token) error) (*TokenSource, error) {
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return nil, fmt.Errorf("%s: %w", p.Name, ErrNoToken)
	}
	return &TokenSource{
		provider:  p,
		config:    NewOAuthConfig(p, creds),
		token:     creds.Token(),
		onRefresh: onRefresh,
	}, nil
}

// Token returns a valid token, refreshing if necessary.
// A token without a refresh token is returned as is.
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.needsRefresh() {
		return ts.token, nil
	}

	src := ts.config.TokenSource(context.Background(), &oauth2.Token{RefreshToken: ts.token.RefreshToken})
	newToken, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing %s token: %w", ts.provider.Name, err)
	}
	logging.Debug().Str("service", ts.provider.Name).Time("expiry", newToken.Expiry).Msg("Refreshed access token")

	if ts.onRefresh != nil {
		if err := ts.onRefresh(newToken); err != nil {
			return nil, err
		}
	}

	ts.token = newToken
	return newToken, nil
}

func (ts *TokenSource) needsRefresh() bool {
	if ts.token.RefreshToken == "" {
		return false
	}
	if ts.token.AccessToken == "" || ts.token.Expiry.IsZero() {
		return true
	}
	return time.Until(ts.token.Expiry) <= expiryBuffer
}

// CurrentToken returns the current token without refreshing
func (ts *TokenSource) CurrentToken() *oauth2.Token {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.token
}

// Client returns an HTTP client authorized by ts
func (ts *TokenSource) Client(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, ts)
}
