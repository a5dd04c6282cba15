package engine

import (
	"time"

	"github.com/yuehengyu/Lunara/internal/domain"
	"github.com/yuehengyu/Lunara/internal/recurrence"
)

// DefaultRolloverGrace is how far past NextAlertAt an occurrence must
// be before it counts as elapsed and the anchor rolls forward.
const DefaultRolloverGrace = time.Minute

// MaybeAdvance detects an elapsed occurrence of a recurring event and
// computes the replacement anchor. It returns (candidate, true) only
// when the anchor actually moves; a redundant call on an already
// advanced event yields false until the new occurrence itself elapses.
//
// The candidate is never earlier than the current anchor, so a stale
// driver racing a fresh one can only write the same forward value.
// A non-nil error is the resolver's soft-fail (iteration cap); the
// candidate is still valid and callers just log it.
func MaybeAdvance(ev domain.Event, reference time.Time, grace time.Duration) (time.Time, bool, error) {
	if !ev.IsRecurring() {
		return time.Time{}, false, nil
	}
	if !ev.NextAlertAt.Add(grace).Before(reference) {
		return time.Time{}, false, nil
	}

	candidate, err := recurrence.Resolve(ev.NextAlertAt, ev.Rule, reference)
	if !candidate.After(ev.NextAlertAt) {
		// Unchanged (malformed rule, lunar fallback) or a backward
		// result from a degenerate rule: never regress, never rewrite.
		return time.Time{}, false, err
	}
	return candidate, true, err
}
