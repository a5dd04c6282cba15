package recurrence

import (
	"errors"
	"time"

	"github.com/6tail/lunar-go/calendar"

	"github.com/yuehengyu/Lunara/internal/domain"
)

// maxSteps bounds the civil stepping loop so a degenerate rule can
// never hang an evaluation pass. Hitting it is a soft failure: the
// last candidate is still returned alongside ErrIterationLimit.
const maxSteps = 1500

// lunarLookaheadYears is how many consecutive trial years the lunar
// path searches before giving up and returning the anchor unchanged.
const lunarLookaheadYears = 3

// ErrIterationLimit signals that stepping stopped at maxSteps. The
// returned instant is the best candidate found, not garbage; callers
// log and carry on.
var ErrIterationLimit = errors.New("recurrence: iteration limit reached")

// Resolve computes the occurrence of rule at or after reference,
// stepping from anchor. It is pure and deterministic: two drivers
// calling it with the same inputs always agree.
//
// Stepping happens in the anchor's own civil calendar (AddDate in the
// anchor's location), so a daily 09:00 event still fires at 09:00
// wall-clock across a DST transition.
func Resolve(anchor time.Time, rule domain.Rule, reference time.Time) (time.Time, error) {
	rule = rule.Normalize()

	switch rule.Kind {
	case domain.RuleNone:
		return anchor, nil
	case domain.RuleDaily:
		return stepForward(anchor, reference, func(t time.Time) time.Time {
			return t.AddDate(0, 0, 1)
		})
	case domain.RuleWeekly:
		return stepForward(anchor, reference, func(t time.Time) time.Time {
			return t.AddDate(0, 0, 7)
		})
	case domain.RuleMonthly:
		return stepForward(anchor, reference, func(t time.Time) time.Time {
			return t.AddDate(0, 1, 0)
		})
	case domain.RuleYearlySolar:
		return stepForward(anchor, reference, func(t time.Time) time.Time {
			return t.AddDate(1, 0, 0)
		})
	case domain.RuleCustom:
		return stepForward(anchor, reference, customStep(rule))
	case domain.RuleYearlyLunar:
		return resolveLunar(anchor, rule, reference), nil
	}

	// Normalize guarantees one of the cases above.
	return anchor, nil
}

func customStep(rule domain.Rule) func(time.Time) time.Time {
	n := rule.Interval
	switch rule.Unit {
	case domain.UnitHour:
		return func(t time.Time) time.Time { return t.Add(time.Duration(n) * time.Hour) }
	case domain.UnitDay:
		return func(t time.Time) time.Time { return t.AddDate(0, 0, n) }
	case domain.UnitWeek:
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 7*n) }
	case domain.UnitMonth:
		return func(t time.Time) time.Time { return t.AddDate(0, n, 0) }
	default: // domain.UnitYear, Normalize rejects anything else
		return func(t time.Time) time.Time { return t.AddDate(n, 0, 0) }
	}
}

// stepForward advances candidate one period at a time until it reaches
// reference or the iteration cap.
func stepForward(anchor, reference time.Time, step func(time.Time) time.Time) (time.Time, error) {
	candidate := anchor
	for i := 0; i < maxSteps; i++ {
		if !candidate.Before(reference) {
			return candidate, nil
		}
		next := step(candidate)
		if !next.After(candidate) {
			// Zero-length period; there is nothing sane to compute.
			return candidate, ErrIterationLimit
		}
		candidate = next
	}
	return candidate, ErrIterationLimit
}

// resolveLunar maps a lunar (month, day) pair onto the Gregorian
// calendar, trying consecutive trial years starting at the reference
// year. A pair that does not exist in a trial year (short months, leap
// irregularities) is skipped, not an error. If no trial year within
// the lookahead yields an occurrence at or after reference, the anchor
// is returned unchanged.
func resolveLunar(anchor time.Time, rule domain.Rule, reference time.Time) time.Time {
	if rule.LunarMonth < 1 || rule.LunarMonth > 12 || rule.LunarDay < 1 || rule.LunarDay > 30 {
		return anchor
	}

	loc := anchor.Location()
	startYear := reference.In(loc).Year()

	for i := 0; i < lunarLookaheadYears; i++ {
		y, m, d, ok := lunarToSolar(startYear+i, rule.LunarMonth, rule.LunarDay)
		if !ok {
			continue
		}
		candidate := time.Date(y, m, d,
			anchor.Hour(), anchor.Minute(), anchor.Second(), 0, loc)
		if !candidate.Before(reference) {
			return candidate
		}
	}

	return anchor
}

// lunarToSolar converts one lunar date to its Gregorian (year, month,
// day). ok is false when the pair does not exist in that lunar year.
// The lunar tables are deterministic, so repeated calls always agree.
func lunarToSolar(lunarYear, lunarMonth, lunarDay int) (y int, m time.Month, d int, ok bool) {
	// lunar-go panics on out-of-table input; treat that as "does not
	// exist this year" per the skippable-year contract.
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	year := calendar.NewLunarYear(lunarYear)
	if year == nil {
		return 0, 0, 0, false
	}
	month := year.GetMonth(lunarMonth)
	if month == nil || lunarDay > month.GetDayCount() {
		return 0, 0, 0, false
	}

	solar := calendar.NewLunarFromYmd(lunarYear, lunarMonth, lunarDay).GetSolar()
	return solar.GetYear(), time.Month(solar.GetMonth()), solar.GetDay(), true
}
