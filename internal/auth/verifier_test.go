package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func newTestVerifier(t *testing.T) (*OIDCVerifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	return NewOIDCVerifier(keySet, googleIssuer, "client-123"), key
}

func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":   googleIssuer,
		"aud":   "client-123",
		"sub":   "google-sub-1",
		"email": "student@example.com",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
}

func TestOIDCVerifier_Valid(t *testing.T) {
	v, key := newTestVerifier(t)

	id, err := v.Verify(context.Background(), signIDToken(t, key, baseClaims()))
	require.NoError(t, err)
	assert.Equal(t, "google-sub-1", id.Subject)
	assert.Equal(t, "student@example.com", id.Email)
}

func TestOIDCVerifier_Rejects(t *testing.T) {
	v, key := newTestVerifier(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	wrongAud := baseClaims()
	wrongAud["aud"] = "someone-else"
	expired := baseClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	wrongIss := baseClaims()
	wrongIss["iss"] = "https://evil.example.com"

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"wrong audience", signIDToken(t, key, wrongAud)},
		{"expired", signIDToken(t, key, expired)},
		{"wrong issuer", signIDToken(t, key, wrongIss)},
		{"wrong key", signIDToken(t, otherKey, baseClaims())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.raw)
			assert.Error(t, err)
		})
	}
}
