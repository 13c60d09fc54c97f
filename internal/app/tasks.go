package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/familyhub/familycal/internal/block"
	"github.com/familyhub/familycal/internal/permissions"
	"github.com/familyhub/familycal/internal/taskmeta"
)

// TaskProvider is the task-level provider port. Implemented by
// googletasks.Client.
type TaskProvider interface {
	ListTasks(ctx context.Context, listID string) ([]block.Task, error)
	GetTask(ctx context.Context, listID, taskID string) (block.Task, error)
	CreateTask(ctx context.Context, listID string, in block.TaskInput) (block.Task, error)
	UpdateTask(ctx context.Context, listID, taskID string, in block.TaskInput) (block.Task, error)
	DeleteTask(ctx context.Context, listID, taskID string) error
}

// TaskService implements the task operations of the HTTP surface. Task
// lists share the calendar permission model: a list id is authorized
// exactly like a calendar id.
type TaskService struct {
	perms    Authorizer
	provider TaskProvider
	logger   *slog.Logger
}

// NewTaskService wires a TaskService.
func NewTaskService(perms Authorizer, provider TaskProvider, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{perms: perms, provider: provider, logger: logger}
}

// List returns the tasks of a list.
func (s *TaskService) List(ctx context.Context, principal, listID string) ([]block.Task, error) {
	if principal == "" {
		return nil, ErrUnauthenticated
	}
	if listID == "" {
		return nil, validationErrorf("listId", "task list id is required")
	}
	if !s.perms.Authorize(principal, listID, permissions.ActionRead) {
		return nil, ErrPermissionDenied
	}
	return s.provider.ListTasks(ctx, listID)
}

// Create validates the input and inserts the task.
func (s *TaskService) Create(ctx context.Context, principal, listID string, in block.TaskInput) (block.Task, error) {
	if principal == "" {
		return block.Task{}, ErrUnauthenticated
	}
	if listID == "" {
		return block.Task{}, validationErrorf("listId", "task list id is required")
	}
	if !s.perms.Authorize(principal, listID, permissions.ActionCreate) {
		return block.Task{}, ErrPermissionDenied
	}
	if strings.TrimSpace(in.Title) == "" {
		return block.Task{}, validationErrorf("title", "title is required")
	}
	return s.provider.CreateTask(ctx, listID, in)
}

// Update rewrites a task. Metadata is merged over what the task already
// carries: keys in the input override, unmentioned keys are preserved, and
// a key set to the empty string is removed.
func (s *TaskService) Update(ctx context.Context, principal, listID, taskID string, in block.TaskInput) (block.Task, error) {
	if principal == "" {
		return block.Task{}, ErrUnauthenticated
	}
	if listID == "" || taskID == "" {
		return block.Task{}, validationErrorf("taskId", "task list id and task id are required")
	}
	if !s.perms.Authorize(principal, listID, permissions.ActionUpdate) {
		return block.Task{}, ErrPermissionDenied
	}
	if strings.TrimSpace(in.Title) == "" {
		return block.Task{}, validationErrorf("title", "title is required")
	}

	existing, err := s.provider.GetTask(ctx, listID, taskID)
	if err != nil {
		return block.Task{}, err
	}
	in.Metadata = mergeMetadata(existing.Metadata, in.Metadata)

	return s.provider.UpdateTask(ctx, listID, taskID, in)
}

// Complete toggles a task's completion state without touching its content.
func (s *TaskService) Complete(ctx context.Context, principal, listID, taskID string, completed bool) (block.Task, error) {
	if principal == "" {
		return block.Task{}, ErrUnauthenticated
	}
	if listID == "" || taskID == "" {
		return block.Task{}, validationErrorf("taskId", "task list id and task id are required")
	}
	if !s.perms.Authorize(principal, listID, permissions.ActionUpdate) {
		return block.Task{}, ErrPermissionDenied
	}

	existing, err := s.provider.GetTask(ctx, listID, taskID)
	if err != nil {
		return block.Task{}, err
	}

	in := block.TaskInput{
		Title:     existing.Title,
		Notes:     existing.Notes,
		Due:       existing.Due,
		Completed: completed,
		Metadata:  existing.Metadata,
	}
	return s.provider.UpdateTask(ctx, listID, taskID, in)
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, principal, listID, taskID string) error {
	if principal == "" {
		return ErrUnauthenticated
	}
	if listID == "" || taskID == "" {
		return validationErrorf("taskId", "task list id and task id are required")
	}
	if !s.perms.Authorize(principal, listID, permissions.ActionDelete) {
		return ErrPermissionDenied
	}
	return s.provider.DeleteTask(ctx, listID, taskID)
}

// Move transfers a task to another list. The provider cannot move tasks
// across lists, so the task is recreated in the destination, stamped with
// its original list, and then removed from the source.
func (s *TaskService) Move(ctx context.Context, principal, listID, taskID, destListID string) (block.Task, error) {
	if principal == "" {
		return block.Task{}, ErrUnauthenticated
	}
	if listID == "" || taskID == "" || destListID == "" {
		return block.Task{}, validationErrorf("destinationListId", "source list, task and destination list ids are required")
	}
	if !s.perms.Authorize(principal, listID, permissions.ActionDelete) ||
		!s.perms.Authorize(principal, destListID, permissions.ActionCreate) {
		return block.Task{}, ErrPermissionDenied
	}

	existing, err := s.provider.GetTask(ctx, listID, taskID)
	if err != nil {
		return block.Task{}, err
	}

	meta := mergeMetadata(existing.Metadata, nil)
	if meta[taskmeta.KeyOriginalListID] == "" {
		if meta == nil {
			meta = map[string]string{}
		}
		meta[taskmeta.KeyOriginalListID] = listID
	}

	created, err := s.provider.CreateTask(ctx, destListID, block.TaskInput{
		Title:     existing.Title,
		Notes:     existing.Notes,
		Due:       existing.Due,
		Completed: existing.Completed,
		Metadata:  meta,
	})
	if err != nil {
		return block.Task{}, err
	}

	if err := s.provider.DeleteTask(ctx, listID, taskID); err != nil {
		// The copy exists in the destination; report the failed cleanup
		// rather than pretending the move was clean.
		s.logger.Warn("failed to delete task after move", "task", taskID, "list", listID, "error", err)
		return created, err
	}

	return created, nil
}

// mergeMetadata shallow-merges partial over base without mutating either.
// Empty-string values in partial remove keys.
func mergeMetadata(base, partial map[string]string) map[string]string {
	if len(base) == 0 && len(partial) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(partial))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range partial {
		if v == "" {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}
