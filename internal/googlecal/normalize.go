package googlecal

import (
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/familyhub/familycal/internal/block"
)

const dateLayout = "2006-01-02"

// Private extended-property keys used for cross-calendar provenance.
const (
	propCategory           = "category"
	propOriginalCalendarID = "originalCalendarId"
)

// ToBlock normalizes a provider event into the canonical Block. The owning
// person id wins over the raw calendar id when supplied, since blocks are
// keyed by family member. Missing optional fields never fail normalization.
func ToBlock(ev *calendar.Event, calendarID, personID string) block.Block {
	owner := calendarID
	if personID != "" {
		owner = personID
	}

	blk := block.Block{
		ID:               ev.Id,
		CalendarID:       owner,
		Title:            ev.Summary,
		Description:      ev.Description,
		Recurrence:       ev.Recurrence,
		RecurringEventID: ev.RecurringEventId,
	}

	if blk.Title == "" {
		blk.Title = block.DefaultTitle
	}

	blk.StartTime, blk.AllDay = parseBoundary(ev.Start)
	blk.EndTime, _ = parseBoundary(ev.End)

	if ev.ExtendedProperties != nil && ev.ExtendedProperties.Private != nil {
		blk.Metadata.Category = ev.ExtendedProperties.Private[propCategory]
		blk.Metadata.OriginalCalendarID = ev.ExtendedProperties.Private[propOriginalCalendarID]
	}

	return blk
}

// parseBoundary reads whichever of {date, dateTime} the provider populated.
// A date-only boundary marks the event as all-day.
func parseBoundary(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.Date != "" {
		t, err := time.Parse(dateLayout, edt.Date)
		if err != nil {
			return time.Time{}, true
		}
		return t, true
	}
	t, err := time.Parse(time.RFC3339, edt.DateTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, false
}

// ToProviderEvent maps validated event input to the provider schema.
//
// Absence is significant on the provider side, so empty values are omitted
// rather than serialized empty: an empty description stays unset, metadata
// keys without values are left out of the extended-property bag, and an
// empty recurrence list is omitted entirely so an update cannot
// accidentally clear an existing series.
func ToProviderEvent(in block.EventInput) *calendar.Event {
	ev := &calendar.Event{Summary: in.Title}

	if in.Description != "" {
		ev.Description = in.Description
	}

	if in.AllDay {
		ev.Start = &calendar.EventDateTime{Date: in.Start.Format(dateLayout)}
		ev.End = &calendar.EventDateTime{Date: in.End.Format(dateLayout)}
	} else {
		tz := in.Timezone
		if tz == "" {
			tz = in.Start.Location().String()
		}
		ev.Start = &calendar.EventDateTime{
			DateTime: in.Start.Format(time.RFC3339),
			TimeZone: tz,
		}
		ev.End = &calendar.EventDateTime{
			DateTime: in.End.Format(time.RFC3339),
			TimeZone: tz,
		}
	}

	private := map[string]string{}
	if in.Metadata.Category != "" {
		private[propCategory] = in.Metadata.Category
	}
	if in.Metadata.OriginalCalendarID != "" {
		private[propOriginalCalendarID] = in.Metadata.OriginalCalendarID
	}
	if len(private) > 0 {
		ev.ExtendedProperties = &calendar.EventExtendedProperties{Private: private}
	}

	if len(in.Recurrence) > 0 {
		ev.Recurrence = in.Recurrence
	}

	return ev
}
