// Package olog provides the loggers used throughout the store.
//
// All loggers are plain *slog.Logger values, so any slog handler can be
// plugged in. The constructors here only capture the configurations used in
// practice: JSON for production, tint for development, noop for tests.
package olog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a production ready logger, logging JSON to stderr.
func New() *slog.Logger {
	return NewWithHandler(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// NewDevelopment returns a colourised logger for local development,
// logging everything down to debug level.
func NewDevelopment(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	return NewWithHandler(tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
}

// NewWithHandler wraps an arbitrary slog handler.
func NewWithHandler(h slog.Handler) *slog.Logger {
	return slog.New(h)
}

// NewNoop returns a logger that performs no operations.
// Ideal as a default dependency.
func NewNoop() *slog.Logger {
	return slog.New(noopHandler{})
}

type noopHandler struct{}

var _ slog.Handler = (*noopHandler)(nil)

func (n noopHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return false
}

func (n noopHandler) Handle(_ context.Context, _ slog.Record) error {
	return nil
}

func (n noopHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return n
}

func (n noopHandler) WithGroup(_ string) slog.Handler {
	return n
}
