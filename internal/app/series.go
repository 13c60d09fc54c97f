package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/familyhub/familycal/internal/block"
	"github.com/familyhub/familycal/internal/permissions"
	"github.com/familyhub/familycal/internal/recurrence"
)

// EditScope selects how far an edit to a recurring event reaches.
type EditScope string

const (
	// ScopeInstance edits only the addressed occurrence. This is also the
	// behavior for non-recurring events and the default when no scope is
	// given.
	ScopeInstance EditScope = "instance"

	// ScopeAll edits the series master, changing every occurrence.
	ScopeAll EditScope = "all"

	// ScopeFuture splits the series at the addressed occurrence: the
	// original series is truncated the day before it and a new series
	// carrying the edit starts in its place.
	ScopeFuture EditScope = "future"
)

// Update applies the edit to an event under the given scope.
func (s *EventService) Update(ctx context.Context, principal, calendarID, eventID string, in block.EventInput, scope EditScope) (block.Block, error) {
	if principal == "" {
		return block.Block{}, ErrUnauthenticated
	}
	if calendarID == "" || eventID == "" {
		return block.Block{}, validationErrorf("eventId", "calendar id and event id are required")
	}
	if !s.perms.Authorize(principal, calendarID, permissions.ActionUpdate) {
		return block.Block{}, ErrPermissionDenied
	}
	if err := validateEventInput(&in); err != nil {
		return block.Block{}, err
	}

	switch scope {
	case "", ScopeInstance:
		if in.Rule != nil {
			in.Recurrence = []string{recurrence.ToGrammar(*in.Rule)}
			in.Rule = nil
		}
		return s.provider.UpdateBlock(ctx, calendarID, eventID, in)

	case ScopeAll:
		return s.updateAll(ctx, calendarID, eventID, in)

	case ScopeFuture:
		return s.updateFuture(ctx, calendarID, eventID, in)

	default:
		return block.Block{}, validationErrorf("scope", "unknown edit scope %q", scope)
	}
}

// updateAll rewrites the series master. When the addressed event is an
// expanded instance, the edit is redirected to its parent series.
func (s *EventService) updateAll(ctx context.Context, calendarID, eventID string, in block.EventInput) (block.Block, error) {
	blk, err := s.provider.GetBlock(ctx, calendarID, eventID, "")
	if err != nil {
		return block.Block{}, err
	}

	target := blk
	if blk.RecurringEventID != "" {
		target, err = s.provider.GetBlock(ctx, calendarID, blk.RecurringEventID, "")
		if err != nil {
			return block.Block{}, err
		}
	}

	switch {
	case in.Rule != nil:
		in.Recurrence = []string{recurrence.ToGrammar(*in.Rule)}
		in.Rule = nil
	case len(in.Recurrence) == 0:
		// No recurrence in the edit keeps the existing series definition.
		in.Recurrence = target.Recurrence
	}

	return s.provider.UpdateBlock(ctx, calendarID, target.ID, in)
}

// updateFuture truncates the original series the day before the addressed
// instance and starts a new series, carrying the edit, at that instance.
// COUNT-bounded series keep their total occurrence count across the split.
func (s *EventService) updateFuture(ctx context.Context, calendarID, eventID string, in block.EventInput) (block.Block, error) {
	inst, err := s.provider.GetBlock(ctx, calendarID, eventID, "")
	if err != nil {
		return block.Block{}, err
	}
	if inst.RecurringEventID == "" {
		return block.Block{}, validationErrorf("scope", "future scope requires an instance of a recurring event")
	}

	master, err := s.provider.GetBlock(ctx, calendarID, inst.RecurringEventID, "")
	if err != nil {
		return block.Block{}, err
	}
	if !recurrence.HasRecurrenceLine(master.Recurrence) {
		return block.Block{}, validationErrorf("scope", "parent event carries no recurrence rule")
	}

	// Truncate the original series: UNTIL at end of the day before the
	// split instance, applied to RRULE lines only.
	cutoff := inst.StartTime.AddDate(0, 0, -1)
	masterIn := inputFromBlock(master)
	masterIn.Recurrence = recurrence.ApplyUntil(master.Recurrence, cutoff)
	if _, err := s.provider.UpdateBlock(ctx, calendarID, master.ID, masterIn); err != nil {
		return block.Block{}, err
	}

	if in.Rule != nil {
		in.Recurrence = []string{recurrence.ToGrammar(*in.Rule)}
		in.Rule = nil
	} else if len(in.Recurrence) == 0 {
		in.Recurrence = splitRecurrence(master, inst)
	}

	created, err := s.provider.CreateBlock(ctx, calendarID, in)
	if err != nil {
		// The master is already truncated; restore its original
		// recurrence so the split either happens completely or not at
		// all.
		masterIn.Recurrence = master.Recurrence
		if _, restoreErr := s.provider.UpdateBlock(ctx, calendarID, master.ID, masterIn); restoreErr != nil {
			s.logger.Error("failed to restore series after aborted split",
				"event", master.ID, "calendar", calendarID, "error", restoreErr)
			return block.Block{}, fmt.Errorf("failed to create split series (and failed to restore the original: %v): %w", restoreErr, err)
		}
		return block.Block{}, fmt.Errorf("failed to create split series, original restored: %w", err)
	}

	return created, nil
}

// splitRecurrence derives the recurrence lines for the new series created
// by a this-and-future split. COUNT bounds are rebalanced so occurrences
// already consumed by the truncated series are not repeated; UNTIL bounds
// and unbounded rules carry over verbatim.
func splitRecurrence(master, inst block.Block) []string {
	out := make([]string, 0, len(master.Recurrence))
	for _, line := range master.Recurrence {
		if !recurrence.IsRecurrenceLine(line) {
			out = append(out, line)
			continue
		}

		count, ok := recurrence.CountOf(line)
		if !ok {
			out = append(out, line)
			continue
		}

		used, err := recurrence.OccurrencesBefore(line, master.StartTime, inst.StartTime)
		if err != nil {
			out = append(out, line)
			continue
		}
		remaining := count - used
		if remaining < 1 {
			remaining = 1
		}
		out = append(out, recurrence.StripEndBounds(line)+";COUNT="+strconv.Itoa(remaining))
	}
	return out
}
