// Package logging builds the process-wide structured logger. Recording and
// playback both log to stderr so that stdout stays reserved for the single
// contractual "proxy listening on <ip>:<port>" line (§6).
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options controls the handler shape.
type Options struct {
	// JSON selects a JSON handler (for non-interactive/background runs);
	// otherwise a human-readable text handler is used.
	JSON bool
	// Debug lowers the level floor to slog.LevelDebug.
	Debug  bool
	Output io.Writer
}

// New builds a *slog.Logger per Options, defaulting output to stderr.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	return slog.New(handler)
}
