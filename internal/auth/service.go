// Package auth implements Google sign-in, encrypted session storage and
// lazy access token refresh.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/studybite/backend/internal/crypto"
	"github.com/studybite/backend/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes requested at sign-in. Full drive scope is needed to share folders.
var Scopes = []string{"openid", "email", "profile", "https://www.googleapis.com/auth/drive"}

// NewGoogleConfig builds the OAuth2 client configuration for Google.
func NewGoogleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}
}

// AuthService handles the OAuth2 flow and the per-user session lifecycle.
type AuthService struct {
	oauthConfig *oauth2.Config
	store       SessionStore
	encryptor   crypto.Encryptor
	verifier    Verifier
	refresher   Refresher
	now         func() time.Time
}

// Option customizes an AuthService.
type Option func(*AuthService)

func WithVerifier(v Verifier) Option {
	return func(s *AuthService) { s.verifier = v }
}

func WithRefresher(r Refresher) Option {
	return func(s *AuthService) { s.refresher = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new AuthService. Without WithRefresher, tokens
// are refreshed against oauthConfig's token endpoint.
func NewAuthService(oauthConfig *oauth2.Config, store SessionStore, encryptor crypto.Encryptor, opts ...Option) *AuthService {
	s := &AuthService{
		oauthConfig: oauthConfig,
		store:       store,
		encryptor:   encryptor,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.refresher == nil {
		s.refresher = NewOAuthRefresher(oauthConfig)
	}
	return s
}

// GenerateAuthURL returns the URL to redirect the user to for Google login.
// Offline access with forced consent makes Google return a refresh token.
func (s *AuthService) GenerateAuthURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode exchanges the authorization code for tokens.
func (s *AuthService) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return tok, nil
}

// VerifyIdentity checks the ID token that came with tok.
func (s *AuthService) VerifyIdentity(ctx context.Context, tok *oauth2.Token) (*Identity, error) {
	if s.verifier == nil {
		return nil, errors.New("no id_token verifier configured")
	}
	raw, _ := tok.Extra("id_token").(string)
	return s.verifier.Verify(ctx, raw)
}

// SaveSession stores tok for the user. When Google omits the refresh token
// (returning users), the previously stored one is kept.
func (s *AuthService) SaveSession(ctx context.Context, id Identity, tok *oauth2.Token) error {
	session := model.Session{
		UserID:       id.Subject,
		Email:        id.Email,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}

	if session.RefreshToken == "" {
		if existing, err := s.LoadSession(ctx, id.Subject); err == nil {
			session.RefreshToken = existing.RefreshToken
		}
	}

	return s.storeSession(ctx, session)
}

// LoadSession reads and decrypts the user's session.
func (s *AuthService) LoadSession(ctx context.Context, userID string) (model.Session, error) {
	record, err := s.store.Get(ctx, userID)
	if err != nil {
		return model.Session{}, err
	}

	accessToken, err := s.encryptor.Decrypt(ctx, userID, record.EncryptedAccessToken)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	refreshToken, err := s.encryptor.Decrypt(ctx, userID, record.EncryptedRefreshToken)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	return model.Session{
		UserID:       record.UserID,
		Email:        record.Email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       record.Expiry,
		Error:        record.Error,
	}, nil
}

// AccessToken returns a valid access token for the user, refreshing it if
// it has expired. Any failure to produce a token is ErrUnauthenticated.
func (s *AuthService) AccessToken(ctx context.Context, userID string) (string, error) {
	session, err := s.LoadSession(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			log.Error().Err(err).Str("user_id", userID).Msg("failed to load session")
		}
		return "", ErrUnauthenticated
	}

	token, updated, err := Resolve(ctx, session, s.now(), s.refresher)
	if err != nil {
		if updated.Error != session.Error {
			log.Warn().Str("user_id", userID).Msg("access token refresh failed")
			if perr := s.storeSession(ctx, updated); perr != nil {
				log.Error().Err(perr).Str("user_id", userID).Msg("failed to record refresh error")
			}
		}
		return "", err
	}

	if updated.AccessToken != session.AccessToken || updated.Error != session.Error {
		if perr := s.storeSession(ctx, updated); perr != nil {
			log.Error().Err(perr).Str("user_id", userID).Msg("failed to persist refreshed session")
		}
	}

	return token, nil
}

// DeleteSession removes the user's session (sign-out).
func (s *AuthService) DeleteSession(ctx context.Context, userID string) error {
	return s.store.Delete(ctx, userID)
}

func (s *AuthService) storeSession(ctx context.Context, session model.Session) error {
	encAccess, err := s.encryptor.Encrypt(ctx, session.UserID, session.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encRefresh, err := s.encryptor.Encrypt(ctx, session.UserID, session.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	return s.store.Put(ctx, model.SessionRecord{
		UserID:                session.UserID,
		Email:                 session.Email,
		EncryptedAccessToken:  encAccess,
		EncryptedRefreshToken: encRefresh,
		Expiry:                session.Expiry,
		Error:                 session.Error,
		UpdatedAt:             s.now(),
	})
}
