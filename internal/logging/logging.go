// Package logging configures the zerolog logger shared by the controllers.
//
// The TUI owns stdout, so the process logger writes JSON lines to a file.
// Controllers receive a zerolog.Logger explicitly; tests hand them one that
// writes into a buffer and decode the emitted events.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxRedactedPrefix bounds how much of a secret may ever reach a log line.
const maxRedactedPrefix = 12

// New returns a JSON logger writing to w at the given level ("debug", "info", ...).
// An unknown level falls back to info.
func New(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Open creates the log file (and its directory) and returns a logger writing to it.
// The returned closer must be closed on shutdown.
func Open(path, level string) (zerolog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	logger := New(f, level).With().Int("pid", os.Getpid()).Logger()
	logger.Info().Time("started", time.Now().UTC()).Msg("logger opened")
	return logger, f, nil
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromContext returns the logger stored in ctx, or a disabled logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// Redact returns a bounded prefix of secret followed by "...". At most a third of the
// secret and never more than maxRedactedPrefix characters are kept.
func Redact(secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ""
	}
	runes := []rune(secret)
	n := len(runes) / 3
	if n > maxRedactedPrefix {
		n = maxRedactedPrefix
	}
	return string(runes[:n]) + "..."
}
