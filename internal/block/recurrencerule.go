package block

import "time"

// Frequency is the repeat unit of a recurrence rule.
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Weekday is a two-letter weekday code as used by the recurrence grammar.
type Weekday string

const (
	Monday    Weekday = "MO"
	Tuesday   Weekday = "TU"
	Wednesday Weekday = "WE"
	Thursday  Weekday = "TH"
	Friday    Weekday = "FR"
	Saturday  Weekday = "SA"
	Sunday    Weekday = "SU"
)

// Valid reports whether w is one of the seven weekday codes.
func (w Weekday) Valid() bool {
	switch w {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// RecurrenceRule is the structured recurrence description accepted at the
// API boundary. It is translated once into the provider grammar at write
// time; the provider only ever stores the translated string.
type RecurrenceRule struct {
	Frequency Frequency `json:"frequency"`

	// Interval below 2 means "every period" and is not serialized.
	Interval int `json:"interval,omitempty"`

	// Count and Until are mutually exclusive end bounds. When a caller
	// supplies both, Count wins (see recurrence.ToGrammar).
	Count int       `json:"count,omitempty"`
	Until time.Time `json:"until,omitempty"`

	// ByDay is only meaningful for Weekly rules.
	ByDay []Weekday `json:"byDay,omitempty"`
}
