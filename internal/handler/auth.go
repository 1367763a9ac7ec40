package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/studybite/backend/internal/auth"
	"github.com/studybite/backend/internal/config"
	"github.com/studybite/backend/internal/model"
	"github.com/studybite/backend/internal/state"
	"golang.org/x/oauth2"
)

// DemoTokenPrefix marks access tokens served by the in-memory drive.
const DemoTokenPrefix = "demo-"

// DemoStorage releases the in-memory drive held for a demo access token.
type DemoStorage interface {
	Drop(accessToken string)
}

// AuthHandler handles sign-in, session status and sign-out.
type AuthHandler struct {
	authService *auth.AuthService
	states      state.Store
	jwtSecret   string
	cfg         config.Config
	demo        DemoStorage
}

// AuthHandlerOption configures an AuthHandler.
type AuthHandlerOption func(*AuthHandler)

// WithDemoStorage lets Logout discard a demo user's drive.
func WithDemoStorage(d DemoStorage) AuthHandlerOption {
	return func(h *AuthHandler) { h.demo = d }
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(s *auth.AuthService, states state.Store, jwtSecret string, cfg config.Config, opts ...AuthHandlerOption) *AuthHandler {
	h := &AuthHandler{authService: s, states: states, jwtSecret: jwtSecret, cfg: cfg}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Login initiates the Google OAuth2 flow.
func (h *AuthHandler) Login(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	st, err := h.states.Issue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue oauth state")
		return failure(http.StatusInternalServerError, "Failed to start sign-in")
	}
	return redirect(h.authService.GenerateAuthURL(st)), nil
}

// Callback handles the OAuth2 callback from Google.
func (h *AuthHandler) Callback(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	q := req.QueryStringParameters
	if e := q["error"]; e != "" {
		log.Warn().Str("error", e).Msg("sign-in declined")
		return redirect(h.frontendURL(url.Values{"error": {e}})), nil
	}

	code := q["code"]
	if code == "" {
		return failure(http.StatusBadRequest, "Missing code")
	}

	if err := h.states.Consume(ctx, q["state"]); err != nil {
		if errors.Is(err, state.ErrInvalidState) {
			return failure(http.StatusBadRequest, "Invalid OAuth state")
		}
		log.Error().Err(err).Msg("failed to check oauth state")
		return failure(http.StatusInternalServerError, "Failed to verify sign-in")
	}

	token, err := h.authService.ExchangeCode(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("ExchangeCode failed")
		return failure(http.StatusInternalServerError, "Failed to exchange code")
	}

	id, err := h.authService.VerifyIdentity(ctx, token)
	if err != nil {
		log.Error().Err(err).Msg("VerifyIdentity failed")
		return failure(http.StatusUnauthorized, "Failed to verify identity")
	}

	if err := h.authService.SaveSession(ctx, *id, token); err != nil {
		log.Error().Err(err).Str("user_id", id.Subject).Msg("SaveSession failed")
		return failure(http.StatusInternalServerError, "Failed to save session")
	}

	return h.signIn(id.Subject, id.Email, url.Values{"success": {"true"}})
}

// Session reports whether the caller has a usable session. An expired access
// token is refreshed here so the UI learns about refresh failures early.
func (h *AuthHandler) Session(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return jsonResponse(http.StatusOK, model.SessionResponse{Success: true})
	}

	if _, err := h.authService.AccessToken(ctx, userID); err != nil && !errors.Is(err, auth.ErrUnauthenticated) {
		log.Error().Err(err).Str("user_id", userID).Msg("AccessToken failed")
	}

	session, err := h.authService.LoadSession(ctx, userID)
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotFound) {
			log.Error().Err(err).Str("user_id", userID).Msg("LoadSession failed")
		}
		return jsonResponse(http.StatusOK, model.SessionResponse{Success: true})
	}

	return jsonResponse(http.StatusOK, model.SessionResponse{
		Success:       true,
		Authenticated: true,
		Email:         session.Email,
		Error:         session.Error,
	})
}

// Logout deletes the stored session and clears the session cookie.
func (h *AuthHandler) Logout(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if userID, err := GetUserID(req, h.jwtSecret); err == nil {
		if err := h.authService.DeleteSession(ctx, userID); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("DeleteSession failed")
		}
		// Demo user IDs are also their access tokens.
		if h.demo != nil && strings.HasPrefix(userID, DemoTokenPrefix) {
			h.demo.Drop(userID)
		}
	}

	resp, err := jsonResponse(http.StatusOK, model.Response{Success: true})
	resp.MultiValueHeaders = map[string][]string{
		"Set-Cookie": {sessionCookie("", 0, h.cfg.CookieSameSite())},
	}
	return resp, err
}

// DemoLogin signs in a throwaway user whose drive lives in process memory.
func (h *AuthHandler) DemoLogin(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if !h.cfg.DemoMode {
		return failure(http.StatusNotFound, "Demo mode is disabled")
	}

	userID := DemoTokenPrefix + uuid.NewString()
	email := "demo@studybite.local"

	// The access token doubles as the key of the user's in-memory drive.
	token := &oauth2.Token{
		AccessToken: userID,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(h.cfg.SessionMaxAge),
	}
	if err := h.authService.SaveSession(ctx, auth.Identity{Subject: userID, Email: email}, token); err != nil {
		log.Error().Err(err).Msg("DemoLogin SaveSession failed")
		return failure(http.StatusInternalServerError, "Failed to save demo session")
	}

	return h.signIn(userID, email, url.Values{"success": {"true"}, "demo": {"true"}})
}

func (h *AuthHandler) signIn(userID, email string, query url.Values) (events.APIGatewayProxyResponse, error) {
	signed, err := IssueSessionToken(userID, email, h.jwtSecret, h.cfg.SessionMaxAge)
	if err != nil {
		log.Error().Err(err).Msg("failed to sign session token")
		return failure(http.StatusInternalServerError, "Failed to sign token")
	}

	cookie := sessionCookie(signed, h.cfg.SessionMaxAge, h.cfg.CookieSameSite())
	return redirect(h.frontendURL(query), cookie), nil
}

func (h *AuthHandler) frontendURL(query url.Values) string {
	return fmt.Sprintf("%s/?%s", h.cfg.FrontendURL, query.Encode())
}
