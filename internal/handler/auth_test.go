package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/studybite/backend/internal/adapter/memory"
	"github.com/studybite/backend/internal/auth"
	"github.com/studybite/backend/internal/config"
	"github.com/studybite/backend/internal/crypto"
	"github.com/studybite/backend/internal/handler"
	"github.com/studybite/backend/internal/model"
	"github.com/studybite/backend/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, raw string) (*auth.Identity, error) {
	if raw != "good-id-token" {
		return nil, assert.AnError
	}
	return &auth.Identity{Subject: "google-sub-1", Email: "student@example.com"}, nil
}

type authFixture struct {
	h       *handler.AuthHandler
	service *auth.AuthService
	states  *state.MemoryStore
	demo    *memory.Provider
}

func newAuthFixture(t *testing.T, demo bool) authFixture {
	t.Helper()
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600,"id_token":"good-id-token"}`))
	}))
	t.Cleanup(tokenSrv.Close)

	oauthCfg := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
		Scopes:       auth.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/auth",
			TokenURL:  tokenSrv.URL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	service := auth.NewAuthService(oauthCfg, auth.NewMemorySessionStore(), crypto.NewMockEncryptor(),
		auth.WithVerifier(stubVerifier{}))
	states := state.NewMemoryStore()

	cfg := config.Config{
		DevMode:       true,
		DemoMode:      demo,
		FrontendURL:   "http://localhost:3000",
		SessionMaxAge: 24 * time.Hour,
	}
	demoStorage := memory.NewProvider()
	return authFixture{
		h:       handler.NewAuthHandler(service, states, testJWTSecret, cfg, handler.WithDemoStorage(demoStorage)),
		service: service,
		states:  states,
		demo:    demoStorage,
	}
}

func sessionTokenFrom(t *testing.T, resp events.APIGatewayProxyResponse) string {
	t.Helper()
	cookies := resp.MultiValueHeaders["Set-Cookie"]
	require.Len(t, cookies, 1)
	value := strings.TrimPrefix(strings.SplitN(cookies[0], ";", 2)[0], "session_token=")
	return value
}

func TestAuthHandler_LoginIssuesState(t *testing.T) {
	f := newAuthFixture(t, false)

	resp, err := f.h.Login(context.Background(), events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Headers["Location"])
	require.NoError(t, err)
	assert.Equal(t, "offline", loc.Query().Get("access_type"))
	assert.Equal(t, "consent", loc.Query().Get("prompt"))

	st := loc.Query().Get("state")
	require.NotEmpty(t, st)
	assert.NoError(t, f.states.Consume(context.Background(), st))
}

func TestAuthHandler_CallbackSignsIn(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()
	st, err := f.states.Issue(ctx)
	require.NoError(t, err)

	resp, err := f.h.Callback(ctx, events.APIGatewayProxyRequest{
		QueryStringParameters: map[string]string{"code": "good-code", "state": st},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode, resp.Body)
	assert.Equal(t, "http://localhost:3000/?success=true", resp.Headers["Location"])

	cookie := resp.MultiValueHeaders["Set-Cookie"][0]
	assert.Contains(t, cookie, "HttpOnly")
	assert.Contains(t, cookie, "Max-Age=86400")
	assert.Contains(t, cookie, "SameSite=Lax")

	userID, err := handler.GetUserID(events.APIGatewayProxyRequest{
		Headers: map[string]string{"Cookie": "session_token=" + sessionTokenFrom(t, resp)},
	}, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "google-sub-1", userID)

	session, err := f.service.LoadSession(ctx, "google-sub-1")
	require.NoError(t, err)
	assert.Equal(t, "at-1", session.AccessToken)
	assert.Equal(t, "rt-1", session.RefreshToken)
	assert.Equal(t, "student@example.com", session.Email)

	// The state is single use.
	resp, err = f.h.Callback(ctx, events.APIGatewayProxyRequest{
		QueryStringParameters: map[string]string{"code": "good-code", "state": st},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthHandler_CallbackRejects(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()

	tests := []struct {
		name   string
		query  func() map[string]string
		status int
	}{
		{"missing code", func() map[string]string { return map[string]string{"state": "x"} }, http.StatusBadRequest},
		{"forged state", func() map[string]string { return map[string]string{"code": "good-code", "state": "forged"} }, http.StatusBadRequest},
		{"bad code", func() map[string]string {
			st, _ := f.states.Issue(ctx)
			return map[string]string{"code": "bad-code", "state": st}
		}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.h.Callback(ctx, events.APIGatewayProxyRequest{QueryStringParameters: tt.query()})
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Empty(t, resp.MultiValueHeaders["Set-Cookie"])
		})
	}
}

func TestAuthHandler_CallbackDeclined(t *testing.T) {
	f := newAuthFixture(t, false)

	resp, err := f.h.Callback(context.Background(), events.APIGatewayProxyRequest{
		QueryStringParameters: map[string]string{"error": "access_denied"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000/?error=access_denied", resp.Headers["Location"])
}

func TestAuthHandler_SessionStatus(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()

	resp, err := f.h.Session(ctx, events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"authenticated":false}`, resp.Body)

	require.NoError(t, f.service.SaveSession(ctx, auth.Identity{Subject: testUserID, Email: "student@example.com"},
		&oauth2.Token{AccessToken: "at", RefreshToken: "rt", Expiry: time.Now().Add(time.Hour)}))

	resp, err = f.h.Session(ctx, makeRequest(http.MethodGet, "/auth/session", "", nil))
	require.NoError(t, err)
	out := decode[model.SessionResponse](t, resp)
	assert.True(t, out.Authenticated)
	assert.Equal(t, "student@example.com", out.Email)
	assert.Empty(t, out.Error)
}

func TestAuthHandler_SessionReportsRefreshError(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()

	// Expired with a refresh token the token endpoint rejects.
	require.NoError(t, f.service.SaveSession(ctx, auth.Identity{Subject: testUserID},
		&oauth2.Token{AccessToken: "at", RefreshToken: "revoked", Expiry: time.Now().Add(-time.Minute)}))

	resp, err := f.h.Session(ctx, makeRequest(http.MethodGet, "/auth/session", "", nil))
	require.NoError(t, err)
	out := decode[model.SessionResponse](t, resp)
	assert.True(t, out.Authenticated)
	assert.Equal(t, model.RefreshErrorFlag, out.Error)
}

func TestAuthHandler_Logout(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.service.SaveSession(ctx, auth.Identity{Subject: testUserID}, &oauth2.Token{AccessToken: "at"}))

	resp, err := f.h.Logout(ctx, makeRequest(http.MethodPost, "/auth/logout", "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.MultiValueHeaders["Set-Cookie"][0], "session_token=;")
	assert.Contains(t, resp.MultiValueHeaders["Set-Cookie"][0], "Max-Age=0")

	_, err = f.service.LoadSession(ctx, testUserID)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestAuthHandler_DemoLogin(t *testing.T) {
	f := newAuthFixture(t, true)
	ctx := context.Background()

	resp, err := f.h.DemoLogin(ctx, events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	userID, err := handler.GetUserID(events.APIGatewayProxyRequest{
		Headers: map[string]string{"Cookie": "session_token=" + sessionTokenFrom(t, resp)},
	}, testJWTSecret)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(userID, handler.DemoTokenPrefix))

	token, err := f.service.AccessToken(ctx, userID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, handler.DemoTokenPrefix))
}

func TestAuthHandler_LogoutDropsDemoDrive(t *testing.T) {
	f := newAuthFixture(t, true)
	ctx := context.Background()

	resp, err := f.h.DemoLogin(ctx, events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	cookie := "session_token=" + sessionTokenFrom(t, resp)
	userID, err := handler.GetUserID(events.APIGatewayProxyRequest{Headers: map[string]string{"Cookie": cookie}}, testJWTSecret)
	require.NoError(t, err)

	_, err = f.demo.Adapter(userID).CreateFolder(ctx, "Week 1", "")
	require.NoError(t, err)

	resp, err = f.h.Logout(ctx, events.APIGatewayProxyRequest{Headers: map[string]string{"Cookie": cookie}})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	entries, err := f.demo.Adapter(userID).ListChildren(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAuthHandler_DemoLoginDisabled(t *testing.T) {
	f := newAuthFixture(t, false)

	resp, err := f.h.DemoLogin(context.Background(), events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
