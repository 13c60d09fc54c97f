package server

import (
	"errors"
	"fmt"
	"time"
)

var errBadCalendarsParam = errors.New("calendars parameter is not a valid JSON calendar-source list")

// parseDateParam accepts either a full RFC 3339 timestamp or a bare date.
// An empty value parses to the zero time; the services treat that as a
// missing window bound.
func parseDateParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected RFC 3339 or YYYY-MM-DD", raw)
}
