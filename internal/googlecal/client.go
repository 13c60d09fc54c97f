// Package googlecal is the Google Calendar provider adapter. It is the
// only package that sees the calendar/v3 schema; everything it returns is
// a normalized Block.
package googlecal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/familyhub/familycal/internal/app"
	"github.com/familyhub/familycal/internal/block"
)

// Client wraps the Google Calendar API service.
type Client struct {
	service *calendar.Service
}

// NewClient creates a Google Calendar client using the provided
// authenticated HTTP client.
func NewClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &Client{service: service}, nil
}

// classify folds provider errors into the application taxonomy. A 404 from
// upstream becomes ErrNotFound; everything else is an upstream failure with
// the provider detail preserved for logging via the wrap chain.
func classify(err error, op string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, app.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, app.ErrUpstream, err)
}

// ListBlocks fetches the calendar's events for the window with recurring
// series expanded into instances, normalized into Blocks.
func (c *Client) ListBlocks(ctx context.Context, calendarID, personID string, timeMin, timeMax time.Time) ([]block.Block, error) {
	events, err := c.service.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true). // expand recurring events
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err, "failed to list events")
	}

	blocks := make([]block.Block, 0, len(events.Items))
	for _, ev := range events.Items {
		blocks = append(blocks, ToBlock(ev, calendarID, personID))
	}
	return blocks, nil
}

// GetBlock retrieves a single event by id.
func (c *Client) GetBlock(ctx context.Context, calendarID, eventID, personID string) (block.Block, error) {
	ev, err := c.service.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return block.Block{}, classify(err, "failed to get event")
	}
	return ToBlock(ev, calendarID, personID), nil
}

// CreateBlock inserts a new event built from the validated input.
// Notifications are suppressed; the family sees changes on next fetch.
func (c *Client) CreateBlock(ctx context.Context, calendarID string, in block.EventInput) (block.Block, error) {
	created, err := c.service.Events.Insert(calendarID, ToProviderEvent(in)).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return block.Block{}, classify(err, "failed to insert event")
	}
	return ToBlock(created, calendarID, ""), nil
}

// UpdateBlock replaces an existing event with one built from the input.
func (c *Client) UpdateBlock(ctx context.Context, calendarID, eventID string, in block.EventInput) (block.Block, error) {
	updated, err := c.service.Events.Update(calendarID, eventID, ToProviderEvent(in)).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return block.Block{}, classify(err, "failed to update event")
	}
	return ToBlock(updated, calendarID, ""), nil
}

// DeleteBlock deletes an event.
func (c *Client) DeleteBlock(ctx context.Context, calendarID, eventID string) error {
	err := c.service.Events.Delete(calendarID, eventID).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return classify(err, "failed to delete event")
	}
	return nil
}

// MoveBlock moves an event to another calendar.
func (c *Client) MoveBlock(ctx context.Context, calendarID, eventID, destCalendarID string) (block.Block, error) {
	moved, err := c.service.Events.Move(calendarID, eventID, destCalendarID).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return block.Block{}, classify(err, "failed to move event")
	}
	return ToBlock(moved, destCalendarID, ""), nil
}
