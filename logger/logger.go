// Package logger initializes the zerolog logger for quilltapd.
package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Init initializes the logger with the given level name, falling back to
// the LOG_LEVEL environment variable when level is empty. If logFile is
// set, JSON logs are appended there; otherwise logs go to stdout, pretty
// printed when pretty is true.
func Init(level, logFile string, pretty bool) (zerolog.Logger, error) {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	parsed := parseLogLevel(level)

	var log zerolog.Logger
	switch {
	case logFile != "":
		//nolint:gosec // G304: User-specified log file path is intentional
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		log = zerolog.New(file).Level(parsed).With().Timestamp().Logger()
		log.Info().Str("path", logFile).Str("level", parsed.String()).Msg("Logger initialized")
	case pretty:
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(parsed).With().Timestamp().Logger()
		log.Info().Str("format", "pretty").Str("level", parsed.String()).Msg("Logger initialized")
	default:
		log = zerolog.New(os.Stdout).Level(parsed).With().Timestamp().Logger()
		log.Info().Str("level", parsed.String()).Msg("Logger initialized")
	}

	return log, nil
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}
