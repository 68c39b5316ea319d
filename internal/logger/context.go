package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// Into returns a copy of ctx carrying l.
func Into(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger stored in ctx, or fallback. A nil fallback yields a nop logger.
func From(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return zap.NewNop()
}

// With derives a logger with fields and stores it back in ctx.
func With(ctx context.Context, fields ...zap.Field) (context.Context, *zap.Logger) {
	l := From(ctx, nil).With(fields...)
	return Into(ctx, l), l
}
