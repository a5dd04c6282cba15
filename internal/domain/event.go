package domain

import (
	"time"
)

// Event is a reminder-bearing calendar entry. NextAlertAt is the single
// authoritative "when does this fire next" instant; it only ever moves
// forward, and only the rollover path moves it.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	NextAlertAt time.Time `json:"next_alert_at"`
	Timezone    string    `json:"timezone"`
	Rule        Rule      `json:"rule"`
	Reminders   []int     `json:"reminders"`
	RecipientID string    `json:"recipient_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Location resolves the event's IANA zone, falling back to UTC when the
// zone name is missing or unknown.
func (e *Event) Location() *time.Location {
	if e.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsRecurring reports whether the event rolls forward after firing.
func (e *Event) IsRecurring() bool {
	return e.Rule.Kind != RuleNone
}
