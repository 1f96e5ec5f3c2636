package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Environments with special log handling
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
)

// Logger wraps zerolog.Logger and provides structured logging capabilities.
type Logger struct {
	zlog zerolog.Logger
}

// New creates a new Logger instance configured for the given environment.
// In development mode, it outputs pretty-printed colored logs.
// In every other mode, it outputs JSON formatted logs.
func New(env string) *Logger {
	var output io.Writer = os.Stdout
	if env == EnvDevelopment {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}
	return NewWithWriter(env, output)
}

// NewWithWriter creates a Logger writing to w with the level chosen for env.
// Tests and the CLI use it to redirect output.
func NewWithWriter(env string, w io.Writer) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	zlog := zerolog.New(w).
		Level(levelFor(env)).
		With().
		Timestamp().
		Logger()

	return &Logger{zlog: zlog}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func levelFor(env string) zerolog.Level {
	switch env {
	case EnvDevelopment:
		return zerolog.DebugLevel
	case EnvTest:
		// keep test output readable; warnings and errors still surface
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug logs a debug message with optional fields.
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.write(l.zlog.Debug(), msg, fields)
}

// Info logs an info message with optional fields.
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.write(l.zlog.Info(), msg, fields)
}

// Warn logs a warning message with optional fields.
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.write(l.zlog.Warn(), msg, fields)
}

// Error logs an error message with an error and optional fields.
func (l *Logger) Error(msg string, err error, fields map[string]interface{}) {
	l.write(l.zlog.Error().Err(err), msg, fields)
}

// Fatal logs a fatal message and exits the application.
func (l *Logger) Fatal(msg string, err error, fields map[string]interface{}) {
	l.write(l.zlog.Fatal().Err(err), msg, fields)
}

func (l *Logger) write(event *zerolog.Event, msg string, fields map[string]interface{}) {
	for key, value := range fields {
		event = event.Interface(key, value)
	}
	event.Msg(msg)
}

// With creates a child logger with additional context fields.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, value)
	}
	return &Logger{zlog: ctx.Logger()}
}

// WithRequestID creates a child logger with a request ID field.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		zlog: l.zlog.With().Str("request_id", requestID).Logger(),
	}
}

// WithComponent creates a child logger tagged with the owning component,
// e.g. "analytics" or "realtime".
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		zlog: l.zlog.With().Str("component", name).Logger(),
	}
}

// GetZerolog returns the underlying zerolog.Logger for advanced usage.
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}
