package engine

import "time"

// Window is a half-open evaluation interval [Start, End). The matcher
// never cares which driver built it or why.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// InstantWindow is the frequent-check shape: a short forward-looking
// window with a small backward tolerance for delayed invocations.
func InstantWindow(now time.Time, lookBack, lookAhead time.Duration) Window {
	return Window{Start: now.Add(-lookBack), End: now.Add(lookAhead)}
}

// DigestWindow is the once-daily shape: the next full calendar day in
// one fixed reference zone.
func DigestWindow(now time.Time, zone *time.Location) Window {
	local := now.In(zone)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)
	start := midnight.AddDate(0, 0, 1)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}
