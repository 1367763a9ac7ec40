package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/studybite/backend/internal/app"
	"github.com/studybite/backend/internal/config"
	"github.com/studybite/backend/internal/logging"
	"github.com/studybite/backend/internal/server"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logging.Setup(cfg.DevMode)
	if envErr != nil {
		log.Debug().Msg("No .env file found, using system environment variables")
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("Server stopped")
}

func run(cfg config.Config) error {
	application, err := app.NewApp(context.Background(), cfg)
	if err != nil {
		return err
	}

	displayAppName(cfg.AppName)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           server.New(application.HandleRequest),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting local server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server.ListenAndServe: %w", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppName(name string) {
	figure.NewFigure(name, "cybermedium", true).Print()
	fmt.Println()
}
