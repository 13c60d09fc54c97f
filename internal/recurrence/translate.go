// Package recurrence translates the structured RecurrenceRule into the
// provider's RRULE grammar and provides string-level utilities for editing
// the end bound of an already-materialized grammar line without a full
// re-derivation.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/familyhub/familycal/internal/block"
)

const (
	linePrefix = "RRULE:"

	// untilLayout is the compact UTC timestamp format the grammar requires
	// for UNTIL bounds.
	untilLayout = "20060102T150405Z"
)

// ToGrammar converts a pre-validated rule into a provider recurrence line.
//
// Clause order is fixed: FREQ, INTERVAL, BYDAY, then at most one end bound.
// An interval below 2 is a no-op and is not serialized. COUNT is emitted
// exactly as supplied: the provider counts the series start as the first
// occurrence, so "repeat 5 times" yields 5 occurrences total, and no +1
// adjustment is applied. When both Count and Until are set, Count wins and
// Until is dropped.
func ToGrammar(rule block.RecurrenceRule) string {
	parts := []string{"FREQ=" + string(rule.Frequency)}

	if rule.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(rule.Interval))
	}

	if len(rule.ByDay) > 0 {
		codes := make([]string, len(rule.ByDay))
		for i, d := range rule.ByDay {
			codes[i] = string(d)
		}
		parts = append(parts, "BYDAY="+strings.Join(codes, ","))
	}

	switch {
	case rule.Count > 0:
		parts = append(parts, "COUNT="+strconv.Itoa(rule.Count))
	case !rule.Until.IsZero():
		parts = append(parts, "UNTIL="+formatUntil(rule.Until))
	}

	return linePrefix + strings.Join(parts, ";")
}

// formatUntil anchors the inclusive end date to end-of-day UTC.
func formatUntil(d time.Time) string {
	u := d.UTC()
	eod := time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 0, time.UTC)
	return eod.Format(untilLayout)
}

// IsRecurrenceLine reports whether line is an RRULE line rather than some
// other recurrence-related line (EXDATE, RDATE, ...).
func IsRecurrenceLine(line string) bool {
	upper := strings.ToUpper(strings.TrimSpace(line))
	if strings.HasPrefix(upper, linePrefix) {
		return true
	}
	// Bare grammar bodies circulate without the property name.
	return strings.HasPrefix(upper, "FREQ=")
}

// HasRecurrenceLine reports whether any line in lines is an RRULE line.
func HasRecurrenceLine(lines []string) bool {
	for _, line := range lines {
		if IsRecurrenceLine(line) {
			return true
		}
	}
	return false
}

// splitLine separates an optional "RRULE:" prefix from the clause body.
func splitLine(line string) (prefix, body string) {
	trimmed := strings.TrimSpace(line)
	if idx := strings.Index(trimmed, ":"); idx >= 0 && strings.EqualFold(trimmed[:idx], "RRULE") {
		return trimmed[:idx+1], trimmed[idx+1:]
	}
	return "", trimmed
}

// FrequencyOf extracts the FREQ token from a grammar line.
func FrequencyOf(line string) (block.Frequency, bool) {
	_, body := splitLine(line)
	for _, clause := range strings.Split(body, ";") {
		key, value, ok := cutClause(clause)
		if ok && key == "FREQ" {
			return block.Frequency(value), true
		}
	}
	return "", false
}

// CountOf extracts the COUNT bound from a grammar line, if present.
func CountOf(line string) (int, bool) {
	_, body := splitLine(line)
	for _, clause := range strings.Split(body, ";") {
		key, value, ok := cutClause(clause)
		if !ok || key != "COUNT" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// StripEndBounds removes any UNTIL and COUNT clauses from a grammar line.
// All other clauses survive unchanged, in their original order.
func StripEndBounds(line string) string {
	prefix, body := splitLine(line)
	var kept []string
	for _, clause := range strings.Split(body, ";") {
		key, _, ok := cutClause(clause)
		if ok && (key == "UNTIL" || key == "COUNT") {
			continue
		}
		if clause != "" {
			kept = append(kept, clause)
		}
	}
	return prefix + strings.Join(kept, ";")
}

// WithUntil replaces any existing end bound on a grammar line with an UNTIL
// clause at end-of-day of the cutoff date.
func WithUntil(line string, cutoff time.Time) string {
	return StripEndBounds(line) + ";UNTIL=" + formatUntil(cutoff)
}

// ApplyUntil rewrites the end bound of every RRULE line in lines, leaving
// non-recurrence lines (EXDATE and friends) untouched. The input slice is
// not modified.
func ApplyUntil(lines []string, cutoff time.Time) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		if IsRecurrenceLine(line) {
			out[i] = WithUntil(line, cutoff)
		} else {
			out[i] = line
		}
	}
	return out
}

func cutClause(clause string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(clause, "=")
	if !ok {
		return "", "", false
	}
	return strings.ToUpper(strings.TrimSpace(key)), value, true
}

// Validate checks that a grammar line parses as a recurrence rule.
func Validate(line string) error {
	_, body := splitLine(line)
	if _, err := rrule.StrToRRule(body); err != nil {
		return fmt.Errorf("invalid recurrence rule %q: %w", line, err)
	}
	return nil
}

// OccurrencesBefore reports how many occurrences of the rule fall strictly
// before cutoff, given the series start. Used to rebalance COUNT-bounded
// series when a recurring event is split at an instance.
func OccurrencesBefore(line string, dtstart, cutoff time.Time) (int, error) {
	_, body := splitLine(line)
	r, err := rrule.StrToRRule(body)
	if err != nil {
		return 0, fmt.Errorf("invalid recurrence rule %q: %w", line, err)
	}
	r.DTStart(dtstart)
	occs := r.Between(dtstart, cutoff.Add(-time.Second), true)
	return len(occs), nil
}
