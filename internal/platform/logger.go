package platform

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process-wide zerolog.Logger: pretty console output
// in development, structured JSON in production, matching the split most
// zerolog-based services make between a developer-facing console writer
// and a machine-parseable one.
func NewLogger(environment string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if environment == "production" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	return zerolog.New(console).With().Timestamp().Logger().Level(zerolog.DebugLevel)
}
