package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/familyhub/familycal/internal/block"
)

type taskService interface {
	List(ctx context.Context, principal, listID string) ([]block.Task, error)
	Create(ctx context.Context, principal, listID string, in block.TaskInput) (block.Task, error)
	Update(ctx context.Context, principal, listID, taskID string, in block.TaskInput) (block.Task, error)
	Complete(ctx context.Context, principal, listID, taskID string, completed bool) (block.Task, error)
	Delete(ctx context.Context, principal, listID, taskID string) error
	Move(ctx context.Context, principal, listID, taskID, destListID string) (block.Task, error)
}

// TaskHandler serves the /api/tasks endpoints.
type TaskHandler struct {
	service   taskService
	responder responder
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(service taskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{service: service, responder: newResponder(logger)}
}

type taskRequest struct {
	Title     string            `json:"title"`
	Notes     string            `json:"notes,omitempty"`
	Due       time.Time         `json:"due,omitempty"`
	Completed bool              `json:"completed"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (r taskRequest) toInput() block.TaskInput {
	return block.TaskInput{
		Title:     r.Title,
		Notes:     r.Notes,
		Due:       r.Due,
		Completed: r.Completed,
		Metadata:  r.Metadata,
	}
}

// List serves GET /api/tasks/{listID}.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	tasks, err := h.service.List(r.Context(), principal, r.PathValue("listID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if tasks == nil {
		tasks = []block.Task{}
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, tasks)
}

// Create serves POST /api/tasks/{listID}.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	task, err := h.service.Create(r.Context(), principal, r.PathValue("listID"), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, task)
}

// Update serves PUT /api/tasks/{listID}/{taskID}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	task, err := h.service.Update(r.Context(), principal,
		r.PathValue("listID"), r.PathValue("taskID"), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, task)
}

// Complete serves POST /api/tasks/{listID}/{taskID}/complete.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	task, err := h.service.Complete(r.Context(), principal,
		r.PathValue("listID"), r.PathValue("taskID"), req.Completed)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, task)
}

// Delete serves DELETE /api/tasks/{listID}/{taskID}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	err := h.service.Delete(r.Context(), principal,
		r.PathValue("listID"), r.PathValue("taskID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Move serves POST /api/tasks/{listID}/{taskID}/move.
func (h *TaskHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DestinationListID string `json:"destinationListId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	task, err := h.service.Move(r.Context(), principal,
		r.PathValue("listID"), r.PathValue("taskID"), req.DestinationListID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, task)
}
