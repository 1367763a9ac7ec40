// Package server runs the Lambda router behind a plain HTTP listener for local
// development.
package server

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

// LambdaHandler is the signature App.HandleRequest satisfies.
type LambdaHandler func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// New returns an echo instance that forwards every request to h.
func New(h LambdaHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(requestLogger())
	e.Use(SecurityHeaders())

	e.Any("/*", bridge(h))
	return e
}

// SecurityHeaders adds the baseline security headers to all responses.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			return next(c)
		}
	}
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			log.Debug().
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("served")
			return nil
		}
	}
}

func bridge(h LambdaHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := toProxyRequest(c.Request())
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable request body")
		}

		resp, err := h(c.Request().Context(), req)
		if err != nil {
			return err
		}
		return writeProxyResponse(c, resp)
	}
}

// toProxyRequest converts r into the event API Gateway would deliver.
// Multipart bodies are base64 encoded, as API Gateway does for binary media.
func toProxyRequest(r *http.Request) (events.APIGatewayProxyRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return events.APIGatewayProxyRequest{}, err
	}

	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		headers[k] = strings.Join(v, ", ")
	}
	// Cookies are joined with "; " on the wire, not ", ".
	if cookies := r.Header.Values("Cookie"); len(cookies) > 0 {
		headers["Cookie"] = strings.Join(cookies, "; ")
	}

	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	req := events.APIGatewayProxyRequest{
		Path:                  r.URL.Path,
		HTTPMethod:            r.Method,
		Headers:               headers,
		QueryStringParameters: query,
		Body:                  string(body),
	}
	if strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		req.Body = base64.StdEncoding.EncodeToString(body)
		req.IsBase64Encoded = true
	}
	return req, nil
}

func writeProxyResponse(c echo.Context, resp events.APIGatewayProxyResponse) error {
	header := c.Response().Header()
	for k, v := range resp.Headers {
		header.Set(k, v)
	}
	for k, values := range resp.MultiValueHeaders {
		for _, v := range values {
			header.Add(k, v)
		}
	}

	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			return err
		}
		body = decoded
	}

	c.Response().WriteHeader(resp.StatusCode)
	_, err := c.Response().Write(body)
	return err
}
