package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/familyhub/familycal/internal/app"
)

var (
	errBadRequestBody = errors.New("request body is not valid JSON")
	errMissingEmail   = errors.New("no authenticated identity on request")
)

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		message = err.Error()
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}
	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps the application error taxonomy onto HTTP.
// Provider detail stays in the server log; callers get a generic message.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := r.loggerFor(ctx)

	var vErr *app.ValidationError
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			Message: "invalid request",
			Errors:  vErr.FieldErrors,
		})

	case errors.Is(err, app.ErrUnauthenticated):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			Message: "authentication required",
		})

	case errors.Is(err, app.ErrPermissionDenied):
		// Deliberately generic: an unauthorized caller learns nothing
		// about which calendars exist.
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			Message: "you do not have access to this resource",
		})

	case errors.Is(err, app.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			Message: "the requested resource was not found",
		})

	case errors.Is(err, app.ErrUpstream):
		logger.ErrorContext(ctx, "upstream provider error", "error", err)
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
			Message: "the calendar provider could not be reached",
		})

	default:
		logger.ErrorContext(ctx, "unhandled error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			Message: "internal error",
		})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}
