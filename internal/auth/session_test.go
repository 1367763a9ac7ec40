package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/studybite/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type countingRefresher struct {
	calls int
	tok   *oauth2.Token
	err   error
}

func (c *countingRefresher) Refresh(_ context.Context, _ string) (*oauth2.Token, error) {
	c.calls++
	return c.tok, c.err
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func validSession() model.Session {
	return model.Session{
		UserID:       "u1",
		AccessToken:  "at-old",
		RefreshToken: "rt-old",
		Expiry:       t0,
	}
}

func TestResolve_NoSession(t *testing.T) {
	r := &countingRefresher{}

	_, _, err := Resolve(context.Background(), model.Session{}, t0, r)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, 0, r.calls)
}

func TestResolve_BeforeExpiry(t *testing.T) {
	r := &countingRefresher{}
	s := validSession()

	for _, now := range []time.Time{t0.Add(-time.Hour), t0.Add(-time.Nanosecond)} {
		token, updated, err := Resolve(context.Background(), s, now, r)
		require.NoError(t, err)
		assert.Equal(t, "at-old", token)
		assert.Equal(t, s, updated)
	}
	assert.Equal(t, 0, r.calls, "refresh must not be called before expiry")
}

func TestResolve_AtAndAfterExpiry(t *testing.T) {
	for _, now := range []time.Time{t0, t0.Add(time.Second), t0.Add(48 * time.Hour)} {
		r := &countingRefresher{tok: &oauth2.Token{AccessToken: "at-new", Expiry: now.Add(time.Hour)}}

		token, updated, err := Resolve(context.Background(), validSession(), now, r)
		require.NoError(t, err)
		assert.Equal(t, 1, r.calls, "refresh is called exactly once at %s", now)
		assert.Equal(t, "at-new", token)
		assert.Equal(t, "at-new", updated.AccessToken)
		assert.Equal(t, now.Add(time.Hour), updated.Expiry)
		assert.Equal(t, "rt-old", updated.RefreshToken, "missing refresh token falls back to the previous one")
		assert.Empty(t, updated.Error)
	}
}

func TestResolve_RotatedRefreshTokenAndClearedError(t *testing.T) {
	s := validSession()
	s.Error = model.RefreshErrorFlag
	r := &countingRefresher{tok: &oauth2.Token{AccessToken: "at-new", RefreshToken: "rt-new", Expiry: t0.Add(time.Hour)}}

	_, updated, err := Resolve(context.Background(), s, t0, r)
	require.NoError(t, err)
	assert.Equal(t, "rt-new", updated.RefreshToken)
	assert.Empty(t, updated.Error)
}

func TestResolve_RefreshFails(t *testing.T) {
	r := &countingRefresher{err: errors.New("invalid_grant")}

	token, updated, err := Resolve(context.Background(), validSession(), t0, r)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Empty(t, token)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, model.RefreshErrorFlag, updated.Error)
	assert.Equal(t, "at-old", updated.AccessToken)
}
