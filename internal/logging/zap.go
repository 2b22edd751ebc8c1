// Package logging adapts zap to the shop.Logger interface.
package logging

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrUnknownLevel is returned for an unrecognized level name.
var ErrUnknownLevel = errors.New("unknown log level")

// Config selects level and encoding of a zap logger.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// Encoding is "json" or "console". Defaults to console.
	Encoding string
	// OutputPaths defaults to stderr so command output on stdout stays clean.
	OutputPaths []string
}

// Logger implements shop.Logger on top of zap.
type Logger struct {
	zap *zap.Logger
}

// New wraps an existing zap logger.
func New(logger *zap.Logger) *Logger {
	return &Logger{zap: logger}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return New(zap.NewNop())
}

// Build creates a logger from config.
func Build(config Config) (*Logger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	encoding := config.Encoding
	if encoding == "" {
		encoding = "console"
	}

	outputs := config.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderCfg.EncodeDuration = zapcore.StringDurationEncoder

	if encoding == "console" {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Encoding:          encoding,
		DisableCaller:     true,
		DisableStacktrace: true,
		EncoderConfig:     encoderCfg,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	return New(logger), nil
}

// ParseLevel maps a level name onto a zap level. Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.DebugLevel, nil
	case "", "info":
		return zap.InfoLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.zap.Debug(msg, toFields(fields)...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.zap.Info(msg, toFields(fields)...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.zap.Warn(msg, toFields(fields)...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.zap.Error(msg, toFields(fields)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// toFields converts a field bag to zap fields in key order so output is stable.
func toFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, key := range keys {
		if err, ok := fields[key].(error); ok {
			out = append(out, zap.NamedError(key, err))

			continue
		}

		out = append(out, zap.Any(key, fields[key]))
	}

	return out
}
