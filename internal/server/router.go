package server

import (
	"log/slog"
	"net/http"
)

// PermissionReloader re-reads the permissions document from disk.
type PermissionReloader interface {
	Reload() error
}

// NewRouter wires the HTTP routes and middleware.
func NewRouter(events *EventHandler, tasks *TaskHandler, reloader PermissionReloader, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	res := newResponder(logger)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		res.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/admin/permissions/reload", func(w http.ResponseWriter, r *http.Request) {
		if err := reloader.Reload(); err != nil {
			res.loggerFor(r.Context()).ErrorContext(r.Context(),
				"permissions reload failed", "error", err)
			// File paths and parse detail stay in the log.
			res.writeJSON(r.Context(), w, http.StatusInternalServerError,
				errorResponse{Message: "permissions reload failed"})
			return
		}
		res.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "reloaded"})
	})

	mux.HandleFunc("GET /api/calendars", events.Calendars)

	mux.HandleFunc("GET /api/events", events.List)
	mux.HandleFunc("GET /api/events/export.ics", events.ExportICS)
	mux.HandleFunc("POST /api/events", events.Create)
	mux.HandleFunc("GET /api/events/{calendarID}/{eventID}", events.Get)
	mux.HandleFunc("PUT /api/events/{calendarID}/{eventID}", events.Update)
	mux.HandleFunc("DELETE /api/events/{calendarID}/{eventID}", events.Delete)
	mux.HandleFunc("POST /api/events/{calendarID}/{eventID}/move", events.Move)

	mux.HandleFunc("GET /api/tasks/{listID}", tasks.List)
	mux.HandleFunc("POST /api/tasks/{listID}", tasks.Create)
	mux.HandleFunc("PUT /api/tasks/{listID}/{taskID}", tasks.Update)
	mux.HandleFunc("DELETE /api/tasks/{listID}/{taskID}", tasks.Delete)
	mux.HandleFunc("POST /api/tasks/{listID}/{taskID}/complete", tasks.Complete)
	mux.HandleFunc("POST /api/tasks/{listID}/{taskID}/move", tasks.Move)

	var handler http.Handler = mux
	handler = RequireIdentity(logger)(handler)
	handler = RequestLogger(logger)(handler)
	return handler
}
