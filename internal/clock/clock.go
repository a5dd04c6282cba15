package clock

import "time"

// Clock supplies the current instant. Injected so evaluation passes are
// deterministic under test.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. Advance returns a new Fixed
// moved forward, so tests can model successive passes.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }

func (f Fixed) Advance(d time.Duration) Fixed { return Fixed{T: f.T.Add(d)} }
