package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log encodings
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

var globalLogger *zap.Logger

// ParseLevel maps a textual level to a zap level, defaulting to info.
func ParseLevel(logLevelStr string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(logLevelStr)) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// loggerConfig picks the human readable development encoder for the console
// format and the production JSON encoder otherwise.
func loggerConfig(format string) zap.Config {
	if format == LogFormatJSON {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

// InitLogger builds the process logger for the given level and format.
func InitLogger(logLevelStr, format string) (*zap.Logger, error) {
	cfg := loggerConfig(format)
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(logLevelStr))

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	// Store for cleanup purposes
	globalLogger = logger

	return logger, nil
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}
