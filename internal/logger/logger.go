package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Constants for logging levels
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Environments the logger format depends on
const (
	EnvDevelopment = "dev"
	EnvProduction  = "prod"
)

// Logger interface defines the logging contract
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

type options struct {
	output io.Writer
}

type Option func(*options)

// Write logs to w instead of stderr
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// New picks the logger format by environment: text for development, JSON otherwise.
// Logs go to stderr unless WithOutput is given, stdout belongs to command output.
// Values of secret attributes (tokens, passwords, authorization) are masked
func New(environment string, level string, opts ...Option) (Logger, error) {
	o := options{output: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   true,
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	switch environment {
	case EnvDevelopment:
		handler = slog.NewTextHandler(o.output, handlerOpts)
	case EnvProduction:
		handler = slog.NewJSONHandler(o.output, handlerOpts)
	default:
		return nil, fmt.Errorf("unknown environment %q", environment)
	}

	return &slogLogger{logger: slog.New(handler)}, nil
}

// NewNoOpLogger creates a logger that discards all log messages
func NewNoOpLogger() Logger {
	return &slogLogger{logger: slog.New(slog.DiscardHandler)}
}
