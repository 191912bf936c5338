package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// New returns the process logger. Local runs get readable text on stderr;
// everything else gets JSON on stdout for the log shipper.
// No business logic should depend on logging implementation details.
func New(appEnv string) *slog.Logger {
	return newWith(os.Stdout, os.Stderr, appEnv)
}

func newWith(stdout, stderr io.Writer, appEnv string) *slog.Logger {
	level := slog.LevelInfo
	if appEnv == "local" || appEnv == "dev" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: redact}

	if appEnv == "local" {
		return slog.New(slog.NewTextHandler(stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(stdout, opts))
}

// Discard is a logger for tests and tools that want silence.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Credentials must never reach the logs, whatever a caller passes.
var secretKeys = map[string]struct{}{
	"access_token":  {},
	"refresh_token": {},
	"password":      {},
	"authorization": {},
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[a.Key]; ok {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
