package domain

// RuleKind tags the closed set of recurrence variants.
type RuleKind string

const (
	RuleNone        RuleKind = "none"
	RuleDaily       RuleKind = "daily"
	RuleWeekly      RuleKind = "weekly"
	RuleMonthly     RuleKind = "monthly"
	RuleYearlySolar RuleKind = "yearly_solar"
	RuleYearlyLunar RuleKind = "yearly_lunar"
	RuleCustom      RuleKind = "custom"
)

// IntervalUnit is the step unit for custom rules.
type IntervalUnit string

const (
	UnitHour  IntervalUnit = "hour"
	UnitDay   IntervalUnit = "day"
	UnitWeek  IntervalUnit = "week"
	UnitMonth IntervalUnit = "month"
	UnitYear  IntervalUnit = "year"
)

// Rule is the recurrence variant. Only the fields belonging to Kind are
// meaningful: LunarMonth/LunarDay for yearly_lunar, Interval/Unit for
// custom. Everything else ignores them.
type Rule struct {
	Kind       RuleKind     `json:"kind"`
	LunarMonth int          `json:"lunar_month,omitempty"`
	LunarDay   int          `json:"lunar_day,omitempty"`
	Interval   int          `json:"interval,omitempty"`
	Unit       IntervalUnit `json:"unit,omitempty"`
}

// Normalize degrades malformed rules instead of failing: a custom rule
// missing a positive interval or a known unit behaves as none, and an
// unknown kind behaves as none.
func (r Rule) Normalize() Rule {
	switch r.Kind {
	case RuleNone, RuleDaily, RuleWeekly, RuleMonthly, RuleYearlySolar:
		return Rule{Kind: r.Kind}
	case RuleYearlyLunar:
		return Rule{Kind: RuleYearlyLunar, LunarMonth: r.LunarMonth, LunarDay: r.LunarDay}
	case RuleCustom:
		if r.Interval <= 0 || !validUnit(r.Unit) {
			return Rule{Kind: RuleNone}
		}
		return Rule{Kind: RuleCustom, Interval: r.Interval, Unit: r.Unit}
	default:
		return Rule{Kind: RuleNone}
	}
}

func validUnit(u IntervalUnit) bool {
	switch u {
	case UnitHour, UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	}
	return false
}
