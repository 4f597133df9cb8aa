// Package logger provides structured logging setup for the orchestrator.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Options controls handler construction.
type Options struct {
	Level   string // "debug", "info", "warn", "error"
	Service string // attached as a "service" attribute on every record
	Async   bool   // buffer records through an AsyncHandler
}

// New creates a *slog.Logger writing JSON to stdout with a "service"
// attribute on every record. When Async is set, records flow through a
// buffered AsyncHandler; the returned Closer flushes it on shutdown.
func New(opts Options) (*slog.Logger, Closer) {
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(opts.Level),
	})

	closer := Closer(nopCloser{})
	if opts.Async {
		ah := NewAsyncHandler(handler, 4096, 2)
		handler = ah
		closer = ah
	}

	return slog.New(handler).With("service", opts.Service), closer
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
