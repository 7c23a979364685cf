// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger from a level name and an output format
// ("json" or "console").
func Setup(level, format string) zerolog.Logger {
	return SetupWithWriter(level, format, os.Stdout)
}

// SetupWithWriter is Setup with an explicit destination.
func SetupWithWriter(level, format string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	log.Logger = zerolog.New(w).With().Timestamp().Str("service", "chat-service").Logger()
	return log.Logger
}

// ForSession returns a child of the global logger tagged with the session id.
func ForSession(sessionID string) zerolog.Logger {
	return log.Logger.With().Str("session_id", sessionID).Logger()
}

// ForComponent returns a child of the global logger tagged with a component name.
func ForComponent(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
