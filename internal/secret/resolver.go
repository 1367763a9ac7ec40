// Package secret provides an abstraction for retrieving secrets from
// different backends (SSM Parameter Store, environment variables, etc.).
package secret

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// DevJWTSecret signs session cookies when no JWT secret is configured.
const DevJWTSecret = "default-dev-secret"

// SSMClient is the subset of *ssm.Client methods used by SSMResolver.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolver retrieves secret values by name.
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SSMResolver fetches secrets from AWS Systems Manager Parameter Store.
type SSMResolver struct {
	client SSMClient
}

// NewSSMResolver returns a Resolver backed by SSM Parameter Store.
func NewSSMResolver(client SSMClient) Resolver {
	return &SSMResolver{client: client}
}

// GetSecret retrieves a SecureString parameter from SSM with decryption.
func (r *SSMResolver) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm get parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %q has no value", name)
	}
	return *out.Parameter.Value, nil
}

// EnvResolver fetches secrets from environment variables.
// "/studybite/jwt-secret" is read from JWT_SECRET.
type EnvResolver struct{}

// NewEnvResolver returns a Resolver that reads from environment variables.
func NewEnvResolver() Resolver {
	return &EnvResolver{}
}

// GetSecret reads from the environment variable derived from the parameter name.
func (r *EnvResolver) GetSecret(_ context.Context, name string) (string, error) {
	envName := paramNameToEnvVar(name)
	val := os.Getenv(envName)
	if val == "" {
		return "", fmt.Errorf("environment variable %q (from param %q) is not set", envName, name)
	}
	return val, nil
}

// paramNameToEnvVar converts an SSM parameter name to an environment variable name.
// "/studybite/google-client-secret" -> "GOOGLE_CLIENT_SECRET"
func paramNameToEnvVar(name string) string {
	parts := strings.Split(name, "/")
	last := parts[len(parts)-1]
	return strings.ToUpper(strings.ReplaceAll(last, "-", "_"))
}

// Params names the parameters holding the application's secrets.
type Params struct {
	GoogleClientSecret string
	JWTSecret          string
	APIGatewaySecret   string
}

// Secrets are the resolved secret values.
type Secrets struct {
	GoogleClientSecret string
	JWTSecret          string
	APIGatewaySecret   string
}

// Load resolves every secret in p. A missing secret is logged and left empty.
// The JWT secret falls back to DevJWTSecret in dev mode and is an error otherwise.
func Load(ctx context.Context, r Resolver, p Params, devMode bool) (Secrets, error) {
	var s Secrets
	var err error

	if s.GoogleClientSecret, err = r.GetSecret(ctx, p.GoogleClientSecret); err != nil {
		log.Warn().Err(err).Msg("failed to resolve GOOGLE_CLIENT_SECRET")
	}
	if s.JWTSecret, err = r.GetSecret(ctx, p.JWTSecret); err != nil {
		if !devMode {
			return Secrets{}, fmt.Errorf("resolve JWT secret: %w", err)
		}
		log.Warn().Err(err).Msg("failed to resolve JWT_SECRET, using development secret")
		s.JWTSecret = DevJWTSecret
	}
	if s.APIGatewaySecret, err = r.GetSecret(ctx, p.APIGatewaySecret); err != nil {
		log.Warn().Err(err).Msg("failed to resolve API_GATEWAY_SECRET")
	}
	return s, nil
}
