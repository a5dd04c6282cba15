package domain

import "time"

// Match is a single due reminder: the event, the offset that matched,
// and the instant the alert was due.
type Match struct {
	Event         Event     `json:"event"`
	OffsetMinutes int       `json:"offset_minutes"`
	AlertAt       time.Time `json:"alert_at"`
}

// Digest is one batched notification for one recipient.
type Digest struct {
	RecipientID string `json:"recipient_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	DedupeTag   string `json:"dedupe_tag,omitempty"`
	ItemCount   int    `json:"item_count"`
}
