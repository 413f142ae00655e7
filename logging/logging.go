// Package logging provides configurable zap logger creation for Fern services.
package logging

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Style selects the zap encoder used by NewLogger.
type Style string

const (
	StyleTerminal Style = "terminal"
	StyleJSON     Style = "json"
	StyleNoop     Style = "noop"
)

// Config configures logger construction.
type Config struct {
	Style Style
	Level string
}

// FromEnv reads FERN_LOG_STYLE and FERN_LOG_LEVEL, defaulting to terminal/info.
func FromEnv() *Config {
	return &Config{
		Style: Style(os.Getenv("FERN_LOG_STYLE")),
		Level: os.Getenv("FERN_LOG_LEVEL"),
	}
}

// New creates a zap logger based on the Config settings.
// If config is nil or has empty values, defaults to terminal style with info level.
func New(c *Config) *zap.Logger {
	var err error
	var logger *zap.Logger

	style := StyleTerminal
	level := zapcore.InfoLevel

	if c != nil {
		if c.Style != "" {
			style = c.Style
		}
		if c.Level != "" {
			if lvl, parseErr := zapcore.ParseLevel(c.Level); parseErr == nil {
				level = lvl
			}
		}
	}

	switch style {
	case StyleNoop:
		logger = zap.NewNop()
	case StyleJSON:
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		logger, err = cfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	case StyleTerminal:
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		logger, err = cfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	default:
		log.Fatalf("invalid logging style %q: must be one of terminal, json, noop", style)
	}

	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	return logger
}
