package engine

import (
	"time"

	"github.com/yuehengyu/Lunara/internal/domain"
)

// Reap returns the ids of non-recurring events whose occurrence has
// elapsed beyond the grace period. Recurring events are never reaped
// regardless of staleness; a stale recurring anchor is the rollover
// path's problem.
//
// Grace is a parameter because two deployment policies share this
// code: a short grace for an actively observed driver and a long one
// for the safety-net job absorbing clock skew.
func Reap(events []domain.Event, reference time.Time, grace time.Duration) []string {
	var ids []string
	for _, ev := range events {
		if ev.IsRecurring() {
			continue
		}
		if ev.NextAlertAt.Add(grace).Before(reference) {
			ids = append(ids, ev.ID)
		}
	}
	return ids
}
