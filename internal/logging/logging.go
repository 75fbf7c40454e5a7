package logging

import (
	"io"
	"os"
	"strings"

	"mini-eventlog/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger from cfg and returns it.
func Setup(cfg config.LogConfig) zerolog.Logger {
	return SetupWriter(cfg, os.Stderr)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	var writer io.Writer = zerolog.ConsoleWriter{Out: out}
	if cfg.Format == "json" {
		writer = out
	}

	logger := zerolog.New(writer).
		With().
		Timestamp().
		Str("service", "eventlog").
		Logger().
		Level(ParseLevel(cfg.Level))

	log.Logger = logger
	return logger
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
