// Package logging builds the slog loggers used by the rstate binary.
package logging

import (
	"io"
	"log/slog"
)

// New returns a text logger writing to w at level. Diagnostics go to w
// (stderr in the CLI) so stdout carries only command output. The "error"
// key is shortened to "err".
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// Level maps the --verbose flag to a level: Debug shows every mutation and
// flush, Warn keeps only observer panics and failures.
func Level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
