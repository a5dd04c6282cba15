package engine

import (
	"sort"
	"time"
)

// ReminderAlert is one due reminder offset of one occurrence.
type ReminderAlert struct {
	OffsetMinutes int
	AlertAt       time.Time
}

// MatchReminders determines which reminder offsets of occurrence fall
// inside the window. Each offset fires at occurrence − offset minutes.
// Duplicate offsets in the input collapse to a single alert; negative
// offsets are ignored. Results are ordered by alert instant.
func MatchReminders(occurrence time.Time, offsets []int, w Window) []ReminderAlert {
	seen := make(map[int]struct{}, len(offsets))
	var alerts []ReminderAlert

	for _, offset := range offsets {
		if offset < 0 {
			continue
		}
		if _, dup := seen[offset]; dup {
			continue
		}
		seen[offset] = struct{}{}

		alertAt := occurrence.Add(-time.Duration(offset) * time.Minute)
		if w.Contains(alertAt) {
			alerts = append(alerts, ReminderAlert{OffsetMinutes: offset, AlertAt: alertAt})
		}
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].AlertAt.Before(alerts[j].AlertAt)
	})
	return alerts
}
