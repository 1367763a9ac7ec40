// Package config reads the application's settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultFrontendURL      = "http://localhost:3000"
	defaultSharedFolderName = "StudyBite Shared Files"
)

// Config holds every environment-driven setting.
type Config struct {
	DevMode  bool
	DemoMode bool
	Port     string
	AppName  string

	FrontendURL       string
	GoogleClientID    string
	GoogleRedirectURL string

	GoogleClientSecretParam string
	JWTSecretParam          string
	APIGatewaySecretParam   string

	SessionsTable    string
	OAuthStatesTable string
	KMSKeyID         string

	SharedFolderName string
	SessionMaxAge    time.Duration
	StateTTL         time.Duration
}

// Load builds a Config from environment variables, applying defaults.
func Load() Config {
	devMode := GetBool("DEV_MODE", false)

	c := Config{
		DevMode:  devMode,
		DemoMode: GetBool("DEMO_MODE", devMode),
		Port:     normalizePort(GetEnv("PORT", "8080")),
		AppName:  GetEnv("APP_NAME", "StudyBite"),

		FrontendURL:    GetEnv("FRONTEND_URL", defaultFrontendURL),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),

		GoogleClientSecretParam: GetEnv("GOOGLE_CLIENT_SECRET_PARAM", "/studybite/google-client-secret"),
		JWTSecretParam:          GetEnv("JWT_SECRET_PARAM", "/studybite/jwt-secret"),
		APIGatewaySecretParam:   GetEnv("API_GATEWAY_SECRET_PARAM", "/studybite/api-gateway-secret"),

		SessionsTable:    GetEnv("SESSIONS_TABLE", "UserSessions"),
		OAuthStatesTable: GetEnv("OAUTH_STATES_TABLE", "OAuthStates"),
		KMSKeyID:         GetEnv("KMS_KEY_ID", "alias/studybite-token-key"),

		SharedFolderName: GetEnv("SHARED_FOLDER_NAME", defaultSharedFolderName),
		SessionMaxAge:    24 * time.Hour,
		StateTTL:         10 * time.Minute,
	}

	c.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	if c.GoogleRedirectURL == "" {
		if devMode {
			c.GoogleRedirectURL = "http://localhost" + c.Port + "/auth/callback"
		} else {
			c.GoogleRedirectURL = c.FrontendURL + "/api/auth/callback"
		}
	}

	return c
}

// CookieSameSite is the SameSite attribute for the session cookie.
// Production serves the UI and API through different origins behind
// CloudFront, which needs None.
func (c Config) CookieSameSite() string {
	if c.DevMode {
		return "Lax"
	}
	return "None"
}

// GetEnv returns the value of envVar, or defaultValue when it is unset or empty.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetBool interprets envVar as a boolean ("true"/"1"/"yes").
func GetBool(envVar string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(envVar)))
	switch value {
	case "":
		return defaultValue
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func normalizePort(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
