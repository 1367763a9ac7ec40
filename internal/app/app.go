package app

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/studybite/backend/internal/adapter"
	"github.com/studybite/backend/internal/adapter/googledrive"
	"github.com/studybite/backend/internal/adapter/memory"
	"github.com/studybite/backend/internal/auth"
	"github.com/studybite/backend/internal/config"
	"github.com/studybite/backend/internal/crypto"
	"github.com/studybite/backend/internal/handler"
	"github.com/studybite/backend/internal/secret"
	"github.com/studybite/backend/internal/state"
)

// HybridProvider delegates to either Google Drive or Memory provider based on the access token.
type HybridProvider struct {
	googleProvider adapter.StorageProvider
	memoryProvider adapter.StorageProvider
}

func NewHybridProvider(google, mem adapter.StorageProvider) *HybridProvider {
	return &HybridProvider{googleProvider: google, memoryProvider: mem}
}

func (h *HybridProvider) GetAdapter(ctx context.Context, accessToken string) (adapter.StorageAdapter, error) {
	if strings.HasPrefix(accessToken, handler.DemoTokenPrefix) {
		return h.memoryProvider.GetAdapter(ctx, accessToken)
	}
	return h.googleProvider.GetAdapter(ctx, accessToken)
}

// Deps are the collaborators App is assembled from.
type Deps struct {
	AuthService *auth.AuthService
	States      state.Store
	Storage     adapter.StorageProvider
	Demo        handler.DemoStorage
	Secrets     secret.Secrets
}

// App holds the dependencies for the Lambda function.
type App struct {
	authHandler      *handler.AuthHandler
	driveHandler     *handler.DriveHandler
	devMode          bool
	frontendURL      string
	apiGatewaySecret string
}

// New assembles an App from already constructed dependencies.
func New(cfg config.Config, deps Deps) *App {
	return &App{
		authHandler:      newAuthHandler(cfg, deps),
		driveHandler:     handler.NewDriveHandler(deps.AuthService, deps.Storage, deps.Secrets.JWTSecret, cfg.SharedFolderName),
		devMode:          cfg.DevMode,
		frontendURL:      cfg.FrontendURL,
		apiGatewaySecret: deps.Secrets.APIGatewaySecret,
	}
}

func newAuthHandler(cfg config.Config, deps Deps) *handler.AuthHandler {
	var opts []handler.AuthHandlerOption
	if deps.Demo != nil {
		opts = append(opts, handler.WithDemoStorage(deps.Demo))
	}
	return handler.NewAuthHandler(deps.AuthService, deps.States, deps.Secrets.JWTSecret, cfg, opts...)
}

// NewApp initializes the application dependencies. In dev mode everything
// runs in process; otherwise sessions and OAuth states live in DynamoDB,
// tokens are encrypted with KMS and secrets come from SSM.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	var (
		resolver  secret.Resolver
		encryptor crypto.Encryptor
		sessions  auth.SessionStore
		states    state.Store
	)

	if cfg.DevMode {
		resolver = secret.NewEnvResolver()
		encryptor = crypto.NewMockEncryptor()
		sessions = auth.NewMemorySessionStore()
		states = state.NewMemoryStore()
		log.Info().Msg("Using in-memory sessions, MockEncryptor and EnvResolver (DEV_MODE=true)")
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to load SDK config: %w", err)
		}

		dynamoClient := dynamodb.NewFromConfig(awsCfg)
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(awsCfg))
		encryptor = crypto.NewKMSService(kms.NewFromConfig(awsCfg), cfg.KMSKeyID)
		sessions = auth.NewDynamoSessionStore(dynamoClient, cfg.SessionsTable)
		states = state.NewDynamoStore(dynamoClient, cfg.OAuthStatesTable, cfg.StateTTL)
		log.Info().
			Str("sessions_table", cfg.SessionsTable).
			Str("states_table", cfg.OAuthStatesTable).
			Msg("Using DynamoDB, KMS and SSM")
	}

	secrets, err := secret.Load(ctx, resolver, secret.Params{
		GoogleClientSecret: cfg.GoogleClientSecretParam,
		JWTSecret:          cfg.JWTSecretParam,
		APIGatewaySecret:   cfg.APIGatewaySecretParam,
	}, cfg.DevMode)
	if err != nil {
		return nil, err
	}

	oauthConfig := auth.NewGoogleConfig(cfg.GoogleClientID, secrets.GoogleClientSecret, cfg.GoogleRedirectURL)
	authService := auth.NewAuthService(oauthConfig, sessions, encryptor,
		auth.WithVerifier(auth.NewGoogleVerifier(ctx, cfg.GoogleClientID)))

	demo := memory.NewProvider()
	storage := NewHybridProvider(googledrive.NewProvider(), demo)

	return New(cfg, Deps{
		AuthService: authService,
		States:      states,
		Storage:     storage,
		Demo:        demo,
		Secrets:     secrets,
	}), nil
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	log.Info().Str("method", method).Str("path", path).Msg("Request")

	// CORS Preflight
	if method == http.MethodOptions {
		return app.corsResponse(events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}), nil
	}

	// Only CloudFront knows the origin secret.
	if !app.devMode && !app.originVerified(req) {
		log.Warn().Str("path", path).Msg("Security Block: Missing or invalid X-Origin-Verify header")
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusForbidden,
			Body:       "Forbidden: Access denied",
		}, nil
	}

	// Strip /api prefix if present (for CloudFront proxying)
	if strings.HasPrefix(path, "/api/") {
		path = strings.TrimPrefix(path, "/api")
	}

	a, d := app.authHandler, app.driveHandler

	switch {
	case path == "/auth/login" && method == http.MethodGet:
		return app.corsResponse(must(a.Login(ctx, req))), nil
	case path == "/auth/callback" && method == http.MethodGet:
		return app.corsResponse(must(a.Callback(ctx, req))), nil
	case path == "/auth/session" && method == http.MethodGet:
		return app.corsResponse(must(a.Session(ctx, req))), nil
	case path == "/auth/logout" && method == http.MethodPost:
		return app.corsResponse(must(a.Logout(ctx, req))), nil
	case path == "/auth/demo-login" && method == http.MethodGet:
		return app.corsResponse(must(a.DemoLogin(ctx, req))), nil

	case path == "/files" && method == http.MethodGet:
		return app.corsResponse(must(d.ListFiles(ctx, req))), nil
	case path == "/create-folder" && method == http.MethodPost:
		return app.corsResponse(must(d.CreateFolder(ctx, req))), nil
	case path == "/upload" && method == http.MethodPost:
		return app.corsResponse(must(d.UploadFile(ctx, req))), nil
	case path == "/delete" && method == http.MethodDelete:
		return app.corsResponse(must(d.DeleteFile(ctx, req))), nil
	case path == "/download" && method == http.MethodGet:
		return app.corsResponse(must(d.GetFileLink(ctx, req))), nil
	case path == "/setup-drive" && method == http.MethodPost:
		return app.corsResponse(must(d.SetupDrive(ctx, req))), nil
	case path == "/add-collaborators" && method == http.MethodPost:
		return app.corsResponse(must(d.AddCollaborators(ctx, req))), nil
	}

	return app.corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// originVerified fails closed: without a configured secret nothing passes.
func (app *App) originVerified(req events.APIGatewayProxyRequest) bool {
	if app.apiGatewaySecret == "" {
		return false
	}
	for k, v := range req.Headers {
		if strings.EqualFold(k, "X-Origin-Verify") {
			return subtle.ConstantTimeCompare([]byte(v), []byte(app.apiGatewaySecret)) == 1
		}
	}
	return false
}

// corsResponse adds CORS headers to an API Gateway response.
func (app *App) corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = app.frontendURL
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,DELETE,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

// must unwraps a handler response, turning an error into a 500.
func must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		log.Error().Err(err).Msg("Handler error")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}
