// Package logging provides the structured logger used across KasaFinder.
//
// It wraps log/slog with level parsing, a choice of JSON or text output
// and default fields (service, version) on every entry.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the level, format and destination of log output.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Logger wraps slog.Logger. It is safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to stdout or stderr as configured.
func New(cfg Config, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}
	return NewWithWriter(cfg, version, output)
}

// NewWithWriter creates a Logger that writes to w, ignoring cfg.Output.
func NewWithWriter(cfg Config, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "kasafinder"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel converts a string log level to slog.Level.
// Unrecognised values fall back to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with additional default attributes.
//
//	scanLog := logger.With("component", "scan")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default creates a text logger at info level on stderr, for use before
// settings are loaded.
func Default() *Logger {
	return New(Config{Level: "info", Format: "text", Output: "stderr"}, "dev")
}

// Discard returns a Logger that drops everything. Handy in tests.
func Discard() *Logger {
	return NewWithWriter(Config{Level: "error"}, "test", io.Discard)
}
