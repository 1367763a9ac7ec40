// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup points the global logger at stderr: human readable in dev mode,
// JSON lines otherwise (CloudWatch).
func Setup(devMode bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = New(os.Stderr, devMode)
}

// New returns a logger writing to w.
func New(w io.Writer, devMode bool) zerolog.Logger {
	if devMode {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
		return zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	}
	return zerolog.New(w).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}
