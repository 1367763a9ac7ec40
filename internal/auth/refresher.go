package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// OAuthRefresher refreshes tokens against the OAuth2 provider's token endpoint.
type OAuthRefresher struct {
	config *oauth2.Config
}

// NewOAuthRefresher creates an OAuthRefresher for config.
func NewOAuthRefresher(config *oauth2.Config) *OAuthRefresher {
	return &OAuthRefresher{config: config}
}

// Refresh performs a single refresh_token grant. The provider may omit the
// refresh token from its response, in which case the input one is returned.
func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, errors.New("no refresh token stored")
	}

	tok, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}
