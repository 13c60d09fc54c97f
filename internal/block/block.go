// Package block holds the application's canonical calendar types. Every
// component above the provider adapters operates on these types only; the
// Google schemas never leak past internal/googlecal and internal/googletasks.
package block

import "time"

// DefaultTitle is used when the upstream event carries no summary.
const DefaultTitle = "Untitled"

// Block is the canonical representation of one calendar event. It is built
// from a provider fetch and is never persisted locally; the provider remains
// the system of record.
type Block struct {
	// ID is the provider event identifier. Empty for blocks that have not
	// been created upstream yet.
	ID string `json:"id"`

	// CalendarID doubles as the owning person identifier.
	CalendarID string `json:"calendarId"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// StartTime and EndTime carry date-only granularity when AllDay is
	// true, and a full timestamp with zone otherwise.
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	AllDay    bool      `json:"allDay"`

	Metadata Metadata `json:"metadata,omitempty"`

	// Recurrence holds the provider's raw recurrence lines verbatim
	// (RRULE, EXDATE, ...). Only series masters carry these.
	Recurrence []string `json:"recurrence,omitempty"`

	// RecurringEventID identifies the parent series when this block is one
	// expanded instance of a recurring event. Never set on the master.
	RecurringEventID string `json:"recurringEventId,omitempty"`
}

// Metadata is the cross-calendar provenance bag carried in the provider's
// private extended properties.
type Metadata struct {
	Category           string `json:"category,omitempty"`
	OriginalCalendarID string `json:"originalCalendarId,omitempty"`
}

// IsZero reports whether no metadata field is set.
func (m Metadata) IsZero() bool {
	return m.Category == "" && m.OriginalCalendarID == ""
}

// CalendarSource identifies one calendar to include in an aggregated view.
type CalendarSource struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

// EventInput is the validated payload for event create/update calls. The
// caller supplies either a structured Rule (translated to the provider
// grammar on the write path) or raw Recurrence lines, not both.
type EventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"allDay"`

	// Timezone is the IANA zone attached to timed boundaries. Defaults to
	// the zone of Start when empty.
	Timezone string `json:"timezone,omitempty"`

	Metadata Metadata `json:"metadata,omitempty"`

	Rule       *RecurrenceRule `json:"recurrence,omitempty"`
	Recurrence []string        `json:"-"`
}
