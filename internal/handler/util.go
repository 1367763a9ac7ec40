package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/studybite/backend/internal/model"
)

const sessionCookieName = "session_token"

// getHeader looks a header up case-insensitively.
func getHeader(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// GetUserID extracts the user ID from the Authorization header or session cookie.
func GetUserID(req events.APIGatewayProxyRequest, jwtSecret string) (string, error) {
	// 1. Check Authorization Header (Bearer <token>)
	tokenString := ""
	authHeader := getHeader(req, "Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	}

	// 2. Check Cookie
	if tokenString == "" {
		for _, part := range strings.Split(getHeader(req, "Cookie"), ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, sessionCookieName+"=") {
				tokenString = strings.TrimPrefix(part, sessionCookieName+"=")
				break
			}
		}
	}

	if tokenString == "" {
		return "", fmt.Errorf("no authorization token found")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		if sub, ok := claims["sub"].(string); ok && sub != "" {
			return sub, nil
		}
	}

	return "", fmt.Errorf("invalid token claims")
}

// IssueSessionToken signs the session JWT stored in the session cookie.
func IssueSessionToken(userID, email, jwtSecret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"exp":   time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}

func sessionCookie(value string, maxAge time.Duration, sameSite string) string {
	return fmt.Sprintf("%s=%s; HttpOnly; Path=/; Max-Age=%d; SameSite=%s; Secure",
		sessionCookieName, value, int(maxAge.Seconds()), sameSite)
}

func jsonResponse(status int, body any) (events.APIGatewayProxyResponse, error) {
	b, err := json.Marshal(body)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal response")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(b),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func failure(status int, message string) (events.APIGatewayProxyResponse, error) {
	return jsonResponse(status, model.Response{Success: false, Message: message})
}

func unauthorized() (events.APIGatewayProxyResponse, error) {
	return failure(http.StatusUnauthorized, "Unauthorized")
}

func redirect(location string, cookies ...string) events.APIGatewayProxyResponse {
	resp := events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": location,
		},
	}
	if len(cookies) > 0 {
		resp.MultiValueHeaders = map[string][]string{"Set-Cookie": cookies}
	}
	return resp
}
