package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// identityHeader carries the authenticated principal's email, set by the
// fronting identity proxy. The login handshake itself happens outside this
// process.
const identityHeader = "X-Forwarded-Email"

// RequestLogger attaches a request-scoped logger (with a request id) to
// the context and logs request start and completion.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(
				"request_id", uuid.NewString(),
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}

// RequireIdentity rejects requests without an authenticated identity and
// stores the principal email on the context for handlers. /health stays
// open.
func RequireIdentity(logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			email := r.Header.Get(identityHeader)
			if email == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingEmail)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), email)))
		})
	}
}
