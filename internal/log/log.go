// Package log provides the structured logger used across the engine.
package log

import (
	"go.uber.org/zap"
)

// Fields is a shorthand for the key/value pairs attached to a log entry.
type Fields map[string]interface{}

// Logger wraps a zap.SugaredLogger with a fields-first API so call sites
// never need to import zap directly.
type Logger struct {
	sugar *zap.SugaredLogger
}

var std = New()

// New builds a production zap logger. Falls back to a no-op logger if
// construction fails, since a logging failure must never abort a
// capability operation.
func New() *Logger {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return &Logger{sugar: l.Sugar()}
}

// Default returns the package-level logger used by the engine when the
// caller does not supply one.
func Default() *Logger {
	return std
}

// SetDefault replaces the package-level logger, e.g. to install a
// development logger in tests.
func SetDefault(l *Logger) {
	std = l
}

func (l *Logger) pairs(fields Fields) []interface{} {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

// Debug logs low-level, per-step chain-verification detail.
func (l *Logger) Debug(msg string, fields Fields) {
	l.sugar.Debugw(msg, l.pairs(fields)...)
}

// Info logs successful, notable operations, such as a created invocation.
func (l *Logger) Info(msg string, fields Fields) {
	l.sugar.Infow(msg, l.pairs(fields)...)
}

// Warn logs rejections, such as a revoked capability.
func (l *Logger) Warn(msg string, fields Fields) {
	l.sugar.Warnw(msg, l.pairs(fields)...)
}

// Error logs failures the caller could not have anticipated.
func (l *Logger) Error(msg string, err error, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	fields["error"] = err
	l.sugar.Errorw(msg, l.pairs(fields)...)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
