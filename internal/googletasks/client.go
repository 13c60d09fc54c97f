// Package googletasks is the Google Tasks provider adapter. Like
// internal/googlecal for events, it is the only package that sees the
// tasks/v1 schema.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"

	"github.com/familyhub/familycal/internal/app"
	"github.com/familyhub/familycal/internal/block"
)

// Client wraps the Google Tasks API service.
type Client struct {
	service *tasks.Service
}

// NewClient creates a Google Tasks client using the provided authenticated
// HTTP client.
func NewClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	service, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{service: service}, nil
}

func classify(err error, op string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, app.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, app.ErrUpstream, err)
}

// ListTasks returns all tasks of a list, completed ones included.
func (c *Client) ListTasks(ctx context.Context, listID string) ([]block.Task, error) {
	result, err := c.service.Tasks.List(listID).
		ShowCompleted(true).
		ShowHidden(true).
		MaxResults(100).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err, "failed to list tasks")
	}

	out := make([]block.Task, 0, len(result.Items))
	for _, t := range result.Items {
		out = append(out, toTask(t, listID))
	}
	return out, nil
}

// GetTask retrieves a single task by id.
func (c *Client) GetTask(ctx context.Context, listID, taskID string) (block.Task, error) {
	t, err := c.service.Tasks.Get(listID, taskID).Context(ctx).Do()
	if err != nil {
		return block.Task{}, classify(err, "failed to get task")
	}
	return toTask(t, listID), nil
}

// CreateTask inserts a new task built from the validated input.
func (c *Client) CreateTask(ctx context.Context, listID string, in block.TaskInput) (block.Task, error) {
	created, err := c.service.Tasks.Insert(listID, toProviderTask(in)).Context(ctx).Do()
	if err != nil {
		return block.Task{}, classify(err, "failed to insert task")
	}
	return toTask(created, listID), nil
}

// UpdateTask replaces a task's content with one built from the input.
func (c *Client) UpdateTask(ctx context.Context, listID, taskID string, in block.TaskInput) (block.Task, error) {
	payload := toProviderTask(in)
	payload.Id = taskID
	updated, err := c.service.Tasks.Update(listID, taskID, payload).Context(ctx).Do()
	if err != nil {
		return block.Task{}, classify(err, "failed to update task")
	}
	return toTask(updated, listID), nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, listID, taskID string) error {
	if err := c.service.Tasks.Delete(listID, taskID).Context(ctx).Do(); err != nil {
		return classify(err, "failed to delete task")
	}
	return nil
}
