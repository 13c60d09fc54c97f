package googletasks

import (
	"time"

	"google.golang.org/api/tasks/v1"

	"github.com/familyhub/familycal/internal/block"
	"github.com/familyhub/familycal/internal/taskmeta"
)

const statusCompleted = "completed"

// toTask normalizes a provider task, splitting the notes side channel back
// into human notes plus structured metadata.
func toTask(t *tasks.Task, listID string) block.Task {
	notes, meta := taskmeta.Decode(t.Notes)

	task := block.Task{
		ID:        t.Id,
		ListID:    listID,
		Title:     t.Title,
		Notes:     notes,
		Completed: t.Status == statusCompleted,
	}
	if task.Title == "" {
		task.Title = block.DefaultTitle
	}
	if len(meta) > 0 {
		task.Metadata = meta
	}

	if t.Due != "" {
		// The provider records due as an RFC3339 timestamp but only the
		// date portion is meaningful.
		if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
			task.Due = due
		}
	}

	return task
}

// toProviderTask maps validated task input to the provider schema, folding
// metadata into the notes field.
func toProviderTask(in block.TaskInput) *tasks.Task {
	t := &tasks.Task{
		Title:  in.Title,
		Notes:  taskmeta.Encode(in.Notes, in.Metadata),
		Status: "needsAction",
	}
	if in.Completed {
		t.Status = statusCompleted
	}
	if !in.Due.IsZero() {
		t.Due = in.Due.UTC().Format(time.RFC3339)
	}
	return t
}
