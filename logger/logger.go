// ABOUTME: zap logger construction from level and format settings
// ABOUTME: Console format is human readable, json format is structured production output
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New builds a logger writing to stderr so stdout stays free for command
// output and the MCP stdio transport.
func New(level, format string) (*zap.Logger, error) {
	var logConfig zap.Config

	switch strings.ToLower(format) {
	case FormatJSON:
		// Production mode: structured JSON logs
		logConfig = zap.NewProductionConfig()
	case "", FormatConsole:
		// Development mode: colorful, human-readable logs
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logConfig.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logConfig.OutputPaths = []string{"stderr"}
	logConfig.ErrorOutputPaths = []string{"stderr"}

	// Default to info level if unset
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	logConfig.Level = zap.NewAtomicLevelAt(lvl)

	return logConfig.Build()
}

// Must is New for command entrypoints; a bad setting falls back to a
// no-op logger instead of aborting.
func Must(level, format string) *zap.Logger {
	log, err := New(level, format)
	if err != nil {
		return zap.NewNop()
	}
	return log
}
