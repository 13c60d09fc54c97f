package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyhub/familycal/internal/block"
	"github.com/familyhub/familycal/internal/permissions"
	"github.com/familyhub/familycal/internal/taskmeta"
)

// fakeTaskProvider is an in-memory TaskProvider.
type fakeTaskProvider struct {
	tasks   map[string]map[string]block.Task
	nextID  int
	deleted []string
}

func newFakeTaskProvider() *fakeTaskProvider {
	return &fakeTaskProvider{tasks: map[string]map[string]block.Task{}}
}

func (f *fakeTaskProvider) put(listID string, task block.Task) {
	if f.tasks[listID] == nil {
		f.tasks[listID] = map[string]block.Task{}
	}
	f.tasks[listID][task.ID] = task
}

func (f *fakeTaskProvider) ListTasks(_ context.Context, listID string) ([]block.Task, error) {
	var out []block.Task
	for _, t := range f.tasks[listID] {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTaskProvider) GetTask(_ context.Context, listID, taskID string) (block.Task, error) {
	t, ok := f.tasks[listID][taskID]
	if !ok {
		return block.Task{}, ErrNotFound
	}
	return t, nil
}

func (f *fakeTaskProvider) CreateTask(_ context.Context, listID string, in block.TaskInput) (block.Task, error) {
	f.nextID++
	task := block.Task{
		ID:        "task-" + time.Now().Format("150405") + "-" + string(rune('a'+f.nextID)),
		ListID:    listID,
		Title:     in.Title,
		Notes:     in.Notes,
		Due:       in.Due,
		Completed: in.Completed,
		Metadata:  in.Metadata,
	}
	f.put(listID, task)
	return task, nil
}

func (f *fakeTaskProvider) UpdateTask(_ context.Context, listID, taskID string, in block.TaskInput) (block.Task, error) {
	if _, ok := f.tasks[listID][taskID]; !ok {
		return block.Task{}, ErrNotFound
	}
	task := block.Task{
		ID:        taskID,
		ListID:    listID,
		Title:     in.Title,
		Notes:     in.Notes,
		Due:       in.Due,
		Completed: in.Completed,
		Metadata:  in.Metadata,
	}
	f.put(listID, task)
	return task, nil
}

func (f *fakeTaskProvider) DeleteTask(_ context.Context, listID, taskID string) error {
	f.deleted = append(f.deleted, listID+"/"+taskID)
	delete(f.tasks[listID], taskID)
	return nil
}

func taskFixture() (*TaskService, *fakeTaskProvider) {
	provider := newFakeTaskProvider()
	provider.put("chores", block.Task{
		ID:     "t1",
		ListID: "chores",
		Title:  "Take out trash",
		Notes:  "Bins to the curb",
		Metadata: map[string]string{
			taskmeta.KeyAssignedTo: "kid1",
			taskmeta.KeyCategory:   "weekly",
		},
	})

	perms := newFakeAuthorizer().
		allow("mom@example.com", "chores",
			permissions.ActionCreate, permissions.ActionRead,
			permissions.ActionUpdate, permissions.ActionDelete).
		allow("mom@example.com", "errands",
			permissions.ActionCreate, permissions.ActionRead)
	return NewTaskService(perms, provider, testLogger()), provider
}

func TestTaskListDefaultDeny(t *testing.T) {
	svc, _ := taskFixture()

	_, err := svc.List(context.Background(), "stranger@example.com", "chores")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.List(context.Background(), "", "chores")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTaskCreateValidatesTitle(t *testing.T) {
	svc, _ := taskFixture()

	_, err := svc.Create(context.Background(), "mom@example.com", "chores", block.TaskInput{})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestTaskUpdateMergesMetadata(t *testing.T) {
	svc, provider := taskFixture()

	got, err := svc.Update(context.Background(), "mom@example.com", "chores", "t1",
		block.TaskInput{
			Title:    "Take out trash",
			Metadata: map[string]string{taskmeta.KeyAssignedTo: "kid2"},
		})
	require.NoError(t, err)

	assert.Equal(t, "kid2", got.Metadata[taskmeta.KeyAssignedTo], "mentioned keys override")
	assert.Equal(t, "weekly", got.Metadata[taskmeta.KeyCategory], "unmentioned keys are preserved")
	assert.Equal(t, got.Metadata, provider.tasks["chores"]["t1"].Metadata)
}

func TestTaskUpdateRemovesEmptyMetadataKeys(t *testing.T) {
	svc, _ := taskFixture()

	got, err := svc.Update(context.Background(), "mom@example.com", "chores", "t1",
		block.TaskInput{
			Title:    "Take out trash",
			Metadata: map[string]string{taskmeta.KeyAssignedTo: ""},
		})
	require.NoError(t, err)

	assert.NotContains(t, got.Metadata, taskmeta.KeyAssignedTo)
}

func TestTaskCompletePreservesContent(t *testing.T) {
	svc, _ := taskFixture()

	got, err := svc.Complete(context.Background(), "mom@example.com", "chores", "t1", true)
	require.NoError(t, err)

	assert.True(t, got.Completed)
	assert.Equal(t, "Take out trash", got.Title)
	assert.Equal(t, "Bins to the curb", got.Notes)
	assert.Equal(t, "kid1", got.Metadata[taskmeta.KeyAssignedTo])
}

func TestTaskMoveStampsOriginalList(t *testing.T) {
	svc, provider := taskFixture()

	moved, err := svc.Move(context.Background(), "mom@example.com", "chores", "t1", "errands")
	require.NoError(t, err)

	assert.Equal(t, "errands", moved.ListID)
	assert.Equal(t, "chores", moved.Metadata[taskmeta.KeyOriginalListID])
	assert.Contains(t, provider.deleted, "chores/t1")
	assert.Empty(t, provider.tasks["chores"])
}

func TestTaskMoveRequiresBothPermissions(t *testing.T) {
	svc, _ := taskFixture()

	// mom has no delete on errands, so moving out of errands is denied.
	_, err := svc.Move(context.Background(), "mom@example.com", "errands", "x", "chores")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
