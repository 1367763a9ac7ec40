package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	googleIssuer  = "https://accounts.google.com"
	googleCertURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// Identity is who the user is, as asserted by a verified ID token.
type Identity struct {
	Subject string
	Email   string
}

// Verifier checks a raw ID token and extracts the identity it carries.
type Verifier interface {
	Verify(ctx context.Context, rawIDToken string) (*Identity, error)
}

// OIDCVerifier verifies Google-issued ID tokens.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier builds an OIDCVerifier against Google's published keys.
// Keys are fetched lazily on first use.
func NewGoogleVerifier(ctx context.Context, clientID string) *OIDCVerifier {
	keySet := oidc.NewRemoteKeySet(ctx, googleCertURL)
	return NewOIDCVerifier(keySet, googleIssuer, clientID)
}

// NewOIDCVerifier builds an OIDCVerifier from an explicit key set.
func NewOIDCVerifier(keySet oidc.KeySet, issuer, clientID string) *OIDCVerifier {
	return &OIDCVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: clientID}),
	}
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	if rawIDToken == "" {
		return nil, errors.New("missing id_token")
	}

	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id_token: %w", err)
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse id_token claims: %w", err)
	}

	return &Identity{Subject: idToken.Subject, Email: claims.Email}, nil
}
