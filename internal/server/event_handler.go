package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/familyhub/familycal/internal/app"
	"github.com/familyhub/familycal/internal/block"
	"github.com/familyhub/familycal/internal/permissions"
)

type eventService interface {
	List(ctx context.Context, principal string, sources []block.CalendarSource, windowStart, windowEnd time.Time) ([]block.Block, error)
	Get(ctx context.Context, principal, calendarID, eventID, personID string) (block.Block, error)
	Create(ctx context.Context, principal, calendarID string, in block.EventInput) (block.Block, error)
	Update(ctx context.Context, principal, calendarID, eventID string, in block.EventInput, scope app.EditScope) (block.Block, error)
	Delete(ctx context.Context, principal, calendarID, eventID string) error
	Move(ctx context.Context, principal, calendarID, eventID, destCalendarID string) (block.Block, error)
	Calendars(principal string) ([]permissions.Calendar, error)
}

// EventHandler serves the /api/events endpoints.
type EventHandler struct {
	service   eventService
	responder responder
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, responder: newResponder(logger)}
}

// eventRequest is the JSON payload for event create/update.
type eventRequest struct {
	CalendarID  string                `json:"calendarId,omitempty"`
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	Start       time.Time             `json:"start"`
	End         time.Time             `json:"end"`
	AllDay      bool                  `json:"allDay"`
	Timezone    string                `json:"timezone,omitempty"`
	Metadata    block.Metadata        `json:"metadata,omitempty"`
	Recurrence  *block.RecurrenceRule `json:"recurrence,omitempty"`
}

func (r eventRequest) toInput() block.EventInput {
	return block.EventInput{
		Title:       r.Title,
		Description: r.Description,
		Start:       r.Start,
		End:         r.End,
		AllDay:      r.AllDay,
		Timezone:    r.Timezone,
		Metadata:    r.Metadata,
		Rule:        r.Recurrence,
	}
}

// listQuery parses the window and calendar-source parameters shared by the
// list and export endpoints.
func (h *EventHandler) listQuery(w http.ResponseWriter, r *http.Request) (sources []block.CalendarSource, start, end time.Time, ok bool) {
	q := r.URL.Query()

	start, err := parseDateParam(q.Get("startDate"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return nil, time.Time{}, time.Time{}, false
	}
	end, err = parseDateParam(q.Get("endDate"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return nil, time.Time{}, time.Time{}, false
	}

	if raw := q.Get("calendars"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &sources); err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadCalendarsParam)
			return nil, time.Time{}, time.Time{}, false
		}
	}

	return sources, start, end, true
}

// List serves GET /api/events.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, start, end, ok := h.listQuery(w, r)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	blocks, err := h.service.List(r.Context(), principal, sources, start, end)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if blocks == nil {
		blocks = []block.Block{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, blocks)
}

// Get serves GET /api/events/{calendarID}/{eventID}.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	blk, err := h.service.Get(r.Context(), principal,
		r.PathValue("calendarID"), r.PathValue("eventID"),
		r.URL.Query().Get("personId"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, blk)
}

// Create serves POST /api/events.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	blk, err := h.service.Create(r.Context(), principal, req.CalendarID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, blk)
}

// Update serves PUT /api/events/{calendarID}/{eventID}. The optional
// "scope" query parameter selects how far an edit to a recurring event
// reaches: instance (default), all, or future.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	blk, err := h.service.Update(r.Context(), principal,
		r.PathValue("calendarID"), r.PathValue("eventID"),
		req.toInput(), app.EditScope(r.URL.Query().Get("scope")))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, blk)
}

// Delete serves DELETE /api/events/{calendarID}/{eventID}.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	err := h.service.Delete(r.Context(), principal,
		r.PathValue("calendarID"), r.PathValue("eventID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Move serves POST /api/events/{calendarID}/{eventID}/move.
func (h *EventHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DestinationCalendarID string `json:"destinationCalendarId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	blk, err := h.service.Move(r.Context(), principal,
		r.PathValue("calendarID"), r.PathValue("eventID"),
		req.DestinationCalendarID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, blk)
}

// Calendars serves GET /api/calendars: the calendars visible to the
// caller.
func (h *EventHandler) Calendars(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	cals, err := h.service.Calendars(principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if cals == nil {
		cals = []permissions.Calendar{}
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, cals)
}
