package googlecal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/familyhub/familycal/internal/block"
)

func TestToBlockTimedEvent(t *testing.T) {
	ev := &calendar.Event{
		Id:          "evt1",
		Summary:     "Dentist",
		Description: "Bring insurance card",
		Start:       &calendar.EventDateTime{DateTime: "2025-03-10T09:00:00-04:00", TimeZone: "America/New_York"},
		End:         &calendar.EventDateTime{DateTime: "2025-03-10T10:00:00-04:00", TimeZone: "America/New_York"},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				"category":           "appointment",
				"originalCalendarId": "mom-personal",
			},
		},
	}

	blk := ToBlock(ev, "family", "")

	assert.Equal(t, "evt1", blk.ID)
	assert.Equal(t, "family", blk.CalendarID)
	assert.Equal(t, "Dentist", blk.Title)
	assert.Equal(t, "Bring insurance card", blk.Description)
	assert.False(t, blk.AllDay)
	assert.Equal(t, "appointment", blk.Metadata.Category)
	assert.Equal(t, "mom-personal", blk.Metadata.OriginalCalendarID)

	want := time.Date(2025, 3, 10, 9, 0, 0, 0, time.FixedZone("", -4*3600))
	assert.True(t, blk.StartTime.Equal(want))
	assert.True(t, blk.EndTime.Equal(want.Add(time.Hour)))
}

func TestToBlockAllDayEvent(t *testing.T) {
	ev := &calendar.Event{
		Id:    "evt2",
		Start: &calendar.EventDateTime{Date: "2025-07-04"},
		End:   &calendar.EventDateTime{Date: "2025-07-05"},
	}

	blk := ToBlock(ev, "family", "")

	assert.True(t, blk.AllDay)
	assert.Equal(t, block.DefaultTitle, blk.Title, "missing summary defaults")
	assert.Equal(t, time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC), blk.StartTime)
	assert.Equal(t, time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC), blk.EndTime)
}

func TestToBlockPersonIDWins(t *testing.T) {
	ev := &calendar.Event{Id: "evt3", Summary: "Soccer"}
	blk := ToBlock(ev, "some-google-calendar-id", "kid1")
	assert.Equal(t, "kid1", blk.CalendarID)
}

func TestToBlockSeriesFieldsPassThrough(t *testing.T) {
	master := &calendar.Event{
		Id:         "series",
		Recurrence: []string{"RRULE:FREQ=WEEKLY;BYDAY=TU", "EXDATE;TZID=UTC:20250401T090000"},
	}
	instance := &calendar.Event{
		Id:               "series_20250408T090000Z",
		RecurringEventId: "series",
	}

	assert.Equal(t, master.Recurrence, ToBlock(master, "family", "").Recurrence)
	assert.Empty(t, ToBlock(master, "family", "").RecurringEventID)
	assert.Equal(t, "series", ToBlock(instance, "family", "").RecurringEventID)
	assert.Empty(t, ToBlock(instance, "family", "").Recurrence)
}

func TestToProviderEventOmitsAbsentFields(t *testing.T) {
	in := block.EventInput{
		Title:  "Standalone",
		Start:  time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		End:    time.Date(2025, 5, 1, 13, 0, 0, 0, time.UTC),
		AllDay: false,
	}

	ev := ToProviderEvent(in)

	assert.Empty(t, ev.Description, "empty description stays unset")
	assert.Nil(t, ev.ExtendedProperties, "empty metadata bag is omitted")
	assert.Nil(t, ev.Recurrence, "empty recurrence list is omitted, not sent empty")
}

func TestToProviderEventTimedAttachesTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	in := block.EventInput{
		Title: "Dinner",
		Start: time.Date(2025, 5, 1, 18, 0, 0, 0, loc),
		End:   time.Date(2025, 5, 1, 19, 0, 0, 0, loc),
	}

	ev := ToProviderEvent(in)

	require.NotNil(t, ev.Start)
	require.NotNil(t, ev.End)
	assert.Equal(t, "America/New_York", ev.Start.TimeZone)
	assert.Equal(t, "America/New_York", ev.End.TimeZone)
	assert.Empty(t, ev.Start.Date)
}

func TestToProviderEventAllDayUsesDateOnly(t *testing.T) {
	in := block.EventInput{
		Title:  "Holiday",
		Start:  time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC),
		AllDay: true,
	}

	ev := ToProviderEvent(in)

	require.NotNil(t, ev.Start)
	assert.Equal(t, "2025-12-25", ev.Start.Date)
	assert.Equal(t, "2025-12-26", ev.End.Date)
	assert.Empty(t, ev.Start.DateTime)
}

// Round-trip: a non-recurring block pushed through ToProviderEvent and back
// through ToBlock keeps title, description, all-day flag and metadata, and
// the boundaries denote the same instants.
func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   block.EventInput
	}{
		{
			name: "timed with metadata",
			in: block.EventInput{
				Title:       "Swim practice",
				Description: "Bring goggles",
				Start:       time.Date(2025, 4, 2, 16, 0, 0, 0, time.UTC),
				End:         time.Date(2025, 4, 2, 17, 0, 0, 0, time.UTC),
				Metadata:    block.Metadata{Category: "sports", OriginalCalendarID: "family"},
			},
		},
		{
			name: "all-day without metadata",
			in: block.EventInput{
				Title:  "Spring break",
				Start:  time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC),
				End:    time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC),
				AllDay: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blk := ToBlock(ToProviderEvent(tt.in), "cal", "")

			assert.Equal(t, tt.in.Title, blk.Title)
			assert.Equal(t, tt.in.Description, blk.Description)
			assert.Equal(t, tt.in.AllDay, blk.AllDay)
			assert.Equal(t, tt.in.Metadata, blk.Metadata)
			assert.True(t, blk.StartTime.Equal(tt.in.Start), "start %v != %v", blk.StartTime, tt.in.Start)
			assert.True(t, blk.EndTime.Equal(tt.in.End), "end %v != %v", blk.EndTime, tt.in.End)
		})
	}
}
