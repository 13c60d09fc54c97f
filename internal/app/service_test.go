package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyhub/familycal/internal/block"
	"github.com/familyhub/familycal/internal/permissions"
)

// fakeAuthorizer grants explicitly registered (email, calendar, action)
// triples and denies everything else.
type fakeAuthorizer struct {
	grants map[string]bool
	cals   []permissions.Calendar
}

func newFakeAuthorizer() *fakeAuthorizer {
	return &fakeAuthorizer{grants: map[string]bool{}}
}

func (f *fakeAuthorizer) allow(email, calendarID string, actions ...permissions.Action) *fakeAuthorizer {
	for _, a := range actions {
		f.grants[email+"|"+calendarID+"|"+string(a)] = true
	}
	return f
}

func (f *fakeAuthorizer) Authorize(email, calendarID string, action permissions.Action) bool {
	return f.grants[email+"|"+calendarID+"|"+string(action)]
}

func (f *fakeAuthorizer) CalendarsFor(string) []permissions.Calendar {
	return f.cals
}

type updateCall struct {
	calendarID string
	eventID    string
	in         block.EventInput
}

type createCall struct {
	calendarID string
	in         block.EventInput
}

// fakeCalendarProvider is an in-memory CalendarProvider that records the
// write calls it receives.
type fakeCalendarProvider struct {
	blocks map[string]map[string]block.Block

	listedCalendars []string
	created         []createCall
	updated         []updateCall
	deleted         []string

	createErr error
	updateErr error
}

func newFakeCalendarProvider() *fakeCalendarProvider {
	return &fakeCalendarProvider{blocks: map[string]map[string]block.Block{}}
}

func (f *fakeCalendarProvider) put(calendarID string, blk block.Block) {
	if f.blocks[calendarID] == nil {
		f.blocks[calendarID] = map[string]block.Block{}
	}
	f.blocks[calendarID][blk.ID] = blk
}

func (f *fakeCalendarProvider) ListBlocks(_ context.Context, calendarID, _ string, _, _ time.Time) ([]block.Block, error) {
	f.listedCalendars = append(f.listedCalendars, calendarID)
	var out []block.Block
	for _, blk := range f.blocks[calendarID] {
		out = append(out, blk)
	}
	return out, nil
}

func (f *fakeCalendarProvider) GetBlock(_ context.Context, calendarID, eventID, personID string) (block.Block, error) {
	blk, ok := f.blocks[calendarID][eventID]
	if !ok {
		return block.Block{}, ErrNotFound
	}
	if personID != "" {
		blk.CalendarID = personID
	}
	return blk, nil
}

func (f *fakeCalendarProvider) CreateBlock(_ context.Context, calendarID string, in block.EventInput) (block.Block, error) {
	if f.createErr != nil {
		return block.Block{}, f.createErr
	}
	f.created = append(f.created, createCall{calendarID, in})
	blk := block.Block{
		ID:         "created-" + in.Title,
		CalendarID: calendarID,
		Title:      in.Title,
		StartTime:  in.Start,
		EndTime:    in.End,
		AllDay:     in.AllDay,
		Metadata:   in.Metadata,
		Recurrence: in.Recurrence,
	}
	f.put(calendarID, blk)
	return blk, nil
}

func (f *fakeCalendarProvider) UpdateBlock(_ context.Context, calendarID, eventID string, in block.EventInput) (block.Block, error) {
	if f.updateErr != nil {
		return block.Block{}, f.updateErr
	}
	f.updated = append(f.updated, updateCall{calendarID, eventID, in})
	blk := block.Block{
		ID:         eventID,
		CalendarID: calendarID,
		Title:      in.Title,
		StartTime:  in.Start,
		EndTime:    in.End,
		AllDay:     in.AllDay,
		Metadata:   in.Metadata,
		Recurrence: in.Recurrence,
	}
	f.put(calendarID, blk)
	return blk, nil
}

func (f *fakeCalendarProvider) DeleteBlock(_ context.Context, calendarID, eventID string) error {
	f.deleted = append(f.deleted, calendarID+"/"+eventID)
	delete(f.blocks[calendarID], eventID)
	return nil
}

func (f *fakeCalendarProvider) MoveBlock(_ context.Context, calendarID, eventID, destCalendarID string) (block.Block, error) {
	blk, ok := f.blocks[calendarID][eventID]
	if !ok {
		return block.Block{}, ErrNotFound
	}
	delete(f.blocks[calendarID], eventID)
	blk.CalendarID = destCalendarID
	f.put(destCalendarID, blk)
	return blk, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

var (
	testWindowStart = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	testWindowEnd   = time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
)

func TestListRequiresIdentityAndInput(t *testing.T) {
	svc := NewEventService(newFakeAuthorizer(), newFakeCalendarProvider(), testLogger(), 0)
	srcs := []block.CalendarSource{{ID: "family"}}

	_, err := svc.List(context.Background(), "", srcs, testWindowStart, testWindowEnd)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	var vErr *ValidationError

	_, err = svc.List(context.Background(), "mom@example.com", srcs, time.Time{}, testWindowEnd)
	assert.ErrorAs(t, err, &vErr)

	_, err = svc.List(context.Background(), "mom@example.com", srcs, testWindowStart, time.Time{})
	assert.ErrorAs(t, err, &vErr)

	_, err = svc.List(context.Background(), "mom@example.com", nil, testWindowStart, testWindowEnd)
	assert.ErrorAs(t, err, &vErr)
}

func TestListFiltersUnauthorizedCalendars(t *testing.T) {
	provider := newFakeCalendarProvider()
	provider.put("family", block.Block{ID: "e1", StartTime: testWindowStart.Add(time.Hour)})
	provider.put("private", block.Block{ID: "e2", StartTime: testWindowStart})

	perms := newFakeAuthorizer().allow("kid@example.com", "family", permissions.ActionRead)
	svc := NewEventService(perms, provider, testLogger(), 0)

	got, err := svc.List(context.Background(), "kid@example.com",
		[]block.CalendarSource{{ID: "family"}, {ID: "private"}},
		testWindowStart, testWindowEnd)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)
	assert.NotContains(t, provider.listedCalendars, "private",
		"unauthorized calendars must not be fetched at all")
}

func TestListNoAuthorizedCalendarsIsEmptyNotError(t *testing.T) {
	svc := NewEventService(newFakeAuthorizer(), newFakeCalendarProvider(), testLogger(), 0)

	got, err := svc.List(context.Background(), "stranger@example.com",
		[]block.CalendarSource{{ID: "family"}}, testWindowStart, testWindowEnd)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetFallsBackToFamilyIdentity(t *testing.T) {
	provider := newFakeCalendarProvider()
	provider.put("family", block.Block{ID: "e1", Title: "Dinner"})

	perms := newFakeAuthorizer().allow("mom@example.com", "family", permissions.ActionRead)
	svc := NewEventService(perms, provider, testLogger(), 0)

	got, err := svc.Get(context.Background(), "mom@example.com", "family", "e1", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultPersonID, got.CalendarID)

	got, err = svc.Get(context.Background(), "mom@example.com", "family", "e1", "kid1")
	require.NoError(t, err)
	assert.Equal(t, "kid1", got.CalendarID)
}

func TestGetPermissionDenied(t *testing.T) {
	provider := newFakeCalendarProvider()
	provider.put("family", block.Block{ID: "e1"})

	svc := NewEventService(newFakeAuthorizer(), provider, testLogger(), 0)

	_, err := svc.Get(context.Background(), "stranger@example.com", "family", "e1", "")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCreateTranslatesRecurrenceRule(t *testing.T) {
	provider := newFakeCalendarProvider()
	perms := newFakeAuthorizer().allow("mom@example.com", "family", permissions.ActionCreate)
	svc := NewEventService(perms, provider, testLogger(), 0)

	in := block.EventInput{
		Title: "Piano lesson",
		Start: testWindowStart.Add(15 * time.Hour),
		End:   testWindowStart.Add(16 * time.Hour),
		Rule: &block.RecurrenceRule{
			Frequency: block.Weekly,
			ByDay:     []block.Weekday{block.Tuesday},
			Count:     10,
		},
	}

	got, err := svc.Create(context.Background(), "mom@example.com", "family", in)
	require.NoError(t, err)

	require.Len(t, provider.created, 1)
	assert.Equal(t, []string{"RRULE:FREQ=WEEKLY;BYDAY=TU;COUNT=10"}, provider.created[0].in.Recurrence)
	assert.Nil(t, provider.created[0].in.Rule, "structured rule must not reach the provider")
	assert.Equal(t, "Piano lesson", got.Title)
}

func TestCreateValidation(t *testing.T) {
	perms := newFakeAuthorizer().allow("mom@example.com", "family",
		permissions.ActionCreate)
	svc := NewEventService(perms, newFakeCalendarProvider(), testLogger(), 0)

	start := testWindowStart.Add(10 * time.Hour)

	tests := []struct {
		name  string
		in    block.EventInput
		field string
	}{
		{
			name:  "missing title",
			in:    block.EventInput{Start: start, End: start.Add(time.Hour)},
			field: "title",
		},
		{
			name:  "missing start",
			in:    block.EventInput{Title: "x", End: start},
			field: "start",
		},
		{
			name:  "end before start",
			in:    block.EventInput{Title: "x", Start: start, End: start.Add(-time.Hour)},
			field: "end",
		},
		{
			name: "invalid frequency",
			in: block.EventInput{
				Title: "x", Start: start, End: start.Add(time.Hour),
				Rule: &block.RecurrenceRule{Frequency: "FORTNIGHTLY"},
			},
			field: "recurrence.frequency",
		},
		{
			name: "invalid weekday code",
			in: block.EventInput{
				Title: "x", Start: start, End: start.Add(time.Hour),
				Rule: &block.RecurrenceRule{Frequency: block.Weekly, ByDay: []block.Weekday{"XX"}},
			},
			field: "recurrence.byDay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "mom@example.com", "family", tt.in)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.FieldErrors, tt.field)
		})
	}
}

func TestDeleteRequiresPermission(t *testing.T) {
	provider := newFakeCalendarProvider()
	provider.put("family", block.Block{ID: "e1"})

	perms := newFakeAuthorizer().allow("kid@example.com", "family", permissions.ActionRead)
	svc := NewEventService(perms, provider, testLogger(), 0)

	err := svc.Delete(context.Background(), "kid@example.com", "family", "e1")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	perms.allow("kid@example.com", "family", permissions.ActionDelete)
	require.NoError(t, svc.Delete(context.Background(), "kid@example.com", "family", "e1"))
	assert.Equal(t, []string{"family/e1"}, provider.deleted)
}

func TestMoveStampsProvenanceOnce(t *testing.T) {
	provider := newFakeCalendarProvider()
	provider.put("family", block.Block{ID: "e1", Title: "Recital"})

	perms := newFakeAuthorizer().
		allow("mom@example.com", "family", permissions.ActionUpdate).
		allow("mom@example.com", "mom-personal", permissions.ActionCreate, permissions.ActionUpdate).
		allow("mom@example.com", "dad-personal", permissions.ActionCreate)
	svc := NewEventService(perms, provider, testLogger(), 0)

	moved, err := svc.Move(context.Background(), "mom@example.com", "family", "e1", "mom-personal")
	require.NoError(t, err)
	assert.Equal(t, "family", moved.Metadata.OriginalCalendarID)

	// A second move keeps the original home.
	moved, err = svc.Move(context.Background(), "mom@example.com", "mom-personal", "e1", "dad-personal")
	require.NoError(t, err)
	assert.Equal(t, "family", moved.Metadata.OriginalCalendarID)
}

func TestMoveSurvivesProvenanceStampFailure(t *testing.T) {
	provider := newFakeCalendarProvider()
	provider.put("family", block.Block{ID: "e1", Title: "Recital"})
	provider.updateErr = errors.New("stamp failed")

	perms := newFakeAuthorizer().
		allow("mom@example.com", "family", permissions.ActionUpdate).
		allow("mom@example.com", "mom-personal", permissions.ActionCreate)
	svc := NewEventService(perms, provider, testLogger(), 0)

	moved, err := svc.Move(context.Background(), "mom@example.com", "family", "e1", "mom-personal")
	require.NoError(t, err, "the move itself succeeded")
	assert.Equal(t, "mom-personal", moved.CalendarID)
}
