// Package logctx carries a request-scoped *slog.Logger through a context.
package logctx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Into returns a copy of ctx carrying l.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger stored in ctx, or fallback when none is stored.
// A nil fallback selects slog.Default().
func From(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
