package auth

import (
	"context"
	"errors"
	"time"

	"github.com/studybite/backend/internal/model"
	"golang.org/x/oauth2"
)

var (
	// ErrUnauthenticated means the request has no usable access token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrSessionNotFound means no session is stored for the user.
	ErrSessionNotFound = errors.New("session not found")
)

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return f(ctx, refreshToken)
}

// Resolve returns the access token to use for session at instant now.
//
// A token is valid only while now is strictly before its expiry. Once expired,
// refresher is called exactly once; on success the returned session carries
// the new token, expiry and refresh token with the error flag cleared, and the
// caller is expected to persist it. On failure the returned session is marked
// with model.RefreshErrorFlag and the error is ErrUnauthenticated.
func Resolve(ctx context.Context, session model.Session, now time.Time, refresher Refresher) (string, model.Session, error) {
	if session.AccessToken == "" {
		return "", session, ErrUnauthenticated
	}

	if now.Before(session.Expiry) {
		return session.AccessToken, session, nil
	}

	tok, err := refresher.Refresh(ctx, session.RefreshToken)
	if err != nil || tok == nil || tok.AccessToken == "" {
		session.Error = model.RefreshErrorFlag
		return "", session, ErrUnauthenticated
	}

	session.AccessToken = tok.AccessToken
	session.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		session.RefreshToken = tok.RefreshToken
	}
	session.Error = ""

	return session.AccessToken, session, nil
}
