package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/studybite/backend/internal/app"
	"github.com/studybite/backend/internal/config"
	"github.com/studybite/backend/internal/logging"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.DevMode)

	application, err := app.NewApp(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize app")
	}
	lambda.Start(application.HandleRequest)
}
