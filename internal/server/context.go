package server

import (
	"context"
	"log/slog"
)

type principalKey struct{}
type loggerKey struct{}

// ContextWithPrincipal stores the authenticated principal's email on the
// context.
func ContextWithPrincipal(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, principalKey{}, email)
}

// PrincipalFromContext returns the authenticated principal's email, if any.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(principalKey{}).(string)
	return email, ok && email != ""
}

// ContextWithLogger stores a request-scoped logger on the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext returns the request-scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger, _ := ctx.Value(loggerKey{}).(*slog.Logger)
	return logger
}
