package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	return FromContextOr(ctx, zap.NewNop())
}

// FromContextOr extracts a logger from the context, falling back to def.
func FromContextOr(ctx context.Context, def *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return def
}

// WithTask derives a per-task logger carrying the document and client ids and stores it in ctx.
func WithTask(ctx context.Context, base *zap.Logger, docID, clientID string) context.Context {
	l := FromContextOr(ctx, base).With(
		zap.String("doc_id", docID),
		zap.String("client_id", clientID),
	)
	return ContextWithLogger(ctx, l)
}
