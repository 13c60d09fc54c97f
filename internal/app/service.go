// Package app composes the permission engine, the provider adapters and
// the aggregator into the application services behind the HTTP surface.
// Validation and authorization happen here, before any upstream call.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/familyhub/familycal/internal/aggregate"
	"github.com/familyhub/familycal/internal/block"
	"github.com/familyhub/familycal/internal/permissions"
	"github.com/familyhub/familycal/internal/recurrence"
)

// DefaultPersonID is the fallback owning identity when a single-event
// lookup arrives without a person hint.
const DefaultPersonID = "family"

// Authorizer answers permission questions. Implemented by
// permissions.Engine.
type Authorizer interface {
	Authorize(email, calendarID string, action permissions.Action) bool
	CalendarsFor(email string) []permissions.Calendar
}

// CalendarProvider is the block-level calendar port. Implemented by
// googlecal.Client.
type CalendarProvider interface {
	ListBlocks(ctx context.Context, calendarID, personID string, timeMin, timeMax time.Time) ([]block.Block, error)
	GetBlock(ctx context.Context, calendarID, eventID, personID string) (block.Block, error)
	CreateBlock(ctx context.Context, calendarID string, in block.EventInput) (block.Block, error)
	UpdateBlock(ctx context.Context, calendarID, eventID string, in block.EventInput) (block.Block, error)
	DeleteBlock(ctx context.Context, calendarID, eventID string) error
	MoveBlock(ctx context.Context, calendarID, eventID, destCalendarID string) (block.Block, error)
}

// EventService implements the event operations of the HTTP surface.
type EventService struct {
	perms    Authorizer
	provider CalendarProvider
	agg      *aggregate.Aggregator
	logger   *slog.Logger
}

// NewEventService wires an EventService. fetchTimeout bounds each
// per-calendar fetch during aggregation; zero keeps the default.
func NewEventService(perms Authorizer, provider CalendarProvider, logger *slog.Logger, fetchTimeout time.Duration) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{
		perms:    perms,
		provider: provider,
		logger:   logger,
		agg: aggregate.New(
			providerFetcher{provider},
			aggregate.WithLogger(logger),
			aggregate.WithTimeout(fetchTimeout),
		),
	}
}

// providerFetcher adapts the CalendarProvider port to the aggregator's
// Fetcher.
type providerFetcher struct {
	provider CalendarProvider
}

func (f providerFetcher) FetchBlocks(ctx context.Context, src block.CalendarSource, windowStart, windowEnd time.Time) ([]block.Block, error) {
	return f.provider.ListBlocks(ctx, src.ID, "", windowStart, windowEnd)
}

// List returns the merged, chronologically ordered events of every
// requested calendar the principal may read. Calendars the principal is
// not authorized for are silently dropped from the fan-out; an empty
// result never reveals which calendars exist.
func (s *EventService) List(ctx context.Context, principal string, sources []block.CalendarSource, windowStart, windowEnd time.Time) ([]block.Block, error) {
	if principal == "" {
		return nil, ErrUnauthenticated
	}
	if windowStart.IsZero() {
		return nil, validationErrorf("startDate", "start date is required")
	}
	if windowEnd.IsZero() {
		return nil, validationErrorf("endDate", "end date is required")
	}
	if len(sources) == 0 {
		return nil, validationErrorf("calendars", "at least one calendar is required")
	}

	var authorized []block.CalendarSource
	for _, src := range sources {
		if s.perms.Authorize(principal, src.ID, permissions.ActionRead) {
			authorized = append(authorized, src)
		}
	}
	if len(authorized) == 0 {
		return []block.Block{}, nil
	}

	return s.agg.List(ctx, authorized, windowStart, windowEnd)
}

// Get resolves one event by calendar and event id. A missing owning-person
// hint falls back to the shared family identity.
func (s *EventService) Get(ctx context.Context, principal, calendarID, eventID, personID string) (block.Block, error) {
	if principal == "" {
		return block.Block{}, ErrUnauthenticated
	}
	if calendarID == "" || eventID == "" {
		return block.Block{}, validationErrorf("eventId", "calendar id and event id are required")
	}
	if !s.perms.Authorize(principal, calendarID, permissions.ActionRead) {
		return block.Block{}, ErrPermissionDenied
	}
	if personID == "" {
		personID = DefaultPersonID
	}
	return s.provider.GetBlock(ctx, calendarID, eventID, personID)
}

// Create validates the input, translates a structured recurrence rule into
// the provider grammar, and inserts the event.
func (s *EventService) Create(ctx context.Context, principal, calendarID string, in block.EventInput) (block.Block, error) {
	if principal == "" {
		return block.Block{}, ErrUnauthenticated
	}
	if calendarID == "" {
		return block.Block{}, validationErrorf("calendarId", "calendar id is required")
	}
	if !s.perms.Authorize(principal, calendarID, permissions.ActionCreate) {
		return block.Block{}, ErrPermissionDenied
	}
	if err := validateEventInput(&in); err != nil {
		return block.Block{}, err
	}

	if in.Rule != nil {
		in.Recurrence = []string{recurrence.ToGrammar(*in.Rule)}
		in.Rule = nil
	}

	return s.provider.CreateBlock(ctx, calendarID, in)
}

// Delete removes an event.
func (s *EventService) Delete(ctx context.Context, principal, calendarID, eventID string) error {
	if principal == "" {
		return ErrUnauthenticated
	}
	if calendarID == "" || eventID == "" {
		return validationErrorf("eventId", "calendar id and event id are required")
	}
	if !s.perms.Authorize(principal, calendarID, permissions.ActionDelete) {
		return ErrPermissionDenied
	}
	return s.provider.DeleteBlock(ctx, calendarID, eventID)
}

// Move transfers an event to another calendar and records where it came
// from, so a later move can restore it.
func (s *EventService) Move(ctx context.Context, principal, calendarID, eventID, destCalendarID string) (block.Block, error) {
	if principal == "" {
		return block.Block{}, ErrUnauthenticated
	}
	if calendarID == "" || eventID == "" || destCalendarID == "" {
		return block.Block{}, validationErrorf("destinationCalendarId", "source calendar, event and destination calendar ids are required")
	}
	if !s.perms.Authorize(principal, calendarID, permissions.ActionUpdate) ||
		!s.perms.Authorize(principal, destCalendarID, permissions.ActionCreate) {
		return block.Block{}, ErrPermissionDenied
	}

	moved, err := s.provider.MoveBlock(ctx, calendarID, eventID, destCalendarID)
	if err != nil {
		return block.Block{}, err
	}

	// First move stamps the original home; later moves keep it.
	if moved.Metadata.OriginalCalendarID == "" {
		in := inputFromBlock(moved)
		in.Metadata.OriginalCalendarID = calendarID
		stamped, err := s.provider.UpdateBlock(ctx, destCalendarID, moved.ID, in)
		if err != nil {
			s.logger.Warn("failed to record move provenance",
				"event", moved.ID, "calendar", destCalendarID, "error", err)
			return moved, nil
		}
		return stamped, nil
	}

	return moved, nil
}

// Calendars lists the calendars the principal holds any role on.
func (s *EventService) Calendars(principal string) ([]permissions.Calendar, error) {
	if principal == "" {
		return nil, ErrUnauthenticated
	}
	return s.perms.CalendarsFor(principal), nil
}

// inputFromBlock rebuilds an EventInput from a fetched block, used when an
// event must be rewritten without caller-supplied input.
func inputFromBlock(blk block.Block) block.EventInput {
	return block.EventInput{
		Title:       blk.Title,
		Description: blk.Description,
		Start:       blk.StartTime,
		End:         blk.EndTime,
		AllDay:      blk.AllDay,
		Metadata:    blk.Metadata,
		Recurrence:  blk.Recurrence,
	}
}

func validateEventInput(in *block.EventInput) error {
	v := &ValidationError{}

	if strings.TrimSpace(in.Title) == "" {
		v.add("title", "title is required")
	}
	if in.Start.IsZero() {
		v.add("start", "start time is required")
	}
	if in.End.IsZero() {
		v.add("end", "end time is required")
	}
	if !in.Start.IsZero() && !in.End.IsZero() && in.End.Before(in.Start) {
		v.add("end", "end must not precede start")
	}
	if in.Rule != nil {
		validateRule(v, in.Rule)
	}

	if v.hasErrors() {
		return v
	}
	return nil
}

func validateRule(v *ValidationError, rule *block.RecurrenceRule) {
	if !rule.Frequency.Valid() {
		v.add("recurrence.frequency", fmt.Sprintf("unsupported frequency %q", rule.Frequency))
	}
	if rule.Interval < 0 {
		v.add("recurrence.interval", "interval must be positive")
	}
	if rule.Count < 0 {
		v.add("recurrence.count", "count must be positive")
	}
	for _, d := range rule.ByDay {
		if !d.Valid() {
			v.add("recurrence.byDay", fmt.Sprintf("unknown weekday code %q", d))
			break
		}
	}
}
