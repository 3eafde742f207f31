// Package logging configures the global zerolog logger for the reviewer.
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger with configuration from environment variables.
// REVIEWER_LOG_LEVEL controls the log level: debug, info, warn, error (default: info).
// REVIEWER_LOG_FORMAT=json keeps raw JSON output for log aggregation; any other
// value selects the human-readable console writer.
func Init() {
	switch os.Getenv("REVIEWER_LOG_LEVEL") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if os.Getenv("REVIEWER_LOG_FORMAT") != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
