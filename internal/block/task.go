package block

import "time"

// Task is the canonical representation of one provider task. Structured
// metadata (assignment, category, provenance) rides in the notes field
// behind a marker, because the task provider has no extended-property
// storage; the codec in internal/taskmeta owns that encoding.
type Task struct {
	ID     string `json:"id"`
	ListID string `json:"listId"`

	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`

	// Due carries date granularity only; the provider ignores the time
	// portion of due timestamps.
	Due       time.Time `json:"due,omitempty"`
	Completed bool      `json:"completed"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// TaskInput is the validated payload for task create/update calls.
type TaskInput struct {
	Title     string            `json:"title"`
	Notes     string            `json:"notes,omitempty"`
	Due       time.Time         `json:"due,omitempty"`
	Completed bool              `json:"completed"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
