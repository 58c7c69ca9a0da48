package irc

import (
	"log/slog"

	"go.uber.org/zap"
)

// Logger is the interface for structured logging.
// It is designed to be compatible with *slog.Logger from the standard library.
// Applications can provide their own implementation or use the default slog logger.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}

// defaultLogger returns the default slog logger from the standard library.
func defaultLogger() Logger {
	return slog.Default()
}

// zapLogger adapts a zap logger to Logger using the sugared key-value API.
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger wraps l so it can be passed to LoggerOption.
func NewZapLogger(l *zap.Logger) Logger {
	return zapLogger{s: l.Sugar()}
}

func (l zapLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l zapLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l zapLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l zapLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }

// connLogger prefixes every call with the connection id.
type connLogger struct {
	Logger
	id string
}

func (l connLogger) Debug(msg string, args ...any) { l.Logger.Debug(msg, l.with(args)...) }
func (l connLogger) Info(msg string, args ...any)  { l.Logger.Info(msg, l.with(args)...) }
func (l connLogger) Warn(msg string, args ...any)  { l.Logger.Warn(msg, l.with(args)...) }
func (l connLogger) Error(msg string, args ...any) { l.Logger.Error(msg, l.with(args)...) }

func (l connLogger) with(args []any) []any {
	return append([]any{"conn_id", l.id}, args...)
}
