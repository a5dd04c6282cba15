package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yuehengyu/Lunara/internal/domain"
)

// Events are always read and written as full records. Partial-field
// writes could let a stale driver resurrect a reaped id or regress an
// advanced anchor; replacing the whole row by id cannot.

func (s *PostgresStore) InsertEvent(ctx context.Context, ev domain.Event) (domain.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ev.CreatedAt = now
	ev.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO events (id, title, next_alert_at, timezone, rule_kind,
			lunar_month, lunar_day, recur_interval, recur_unit,
			reminders, recipient_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, ev.ID, ev.Title, ev.NextAlertAt, ev.Timezone, string(ev.Rule.Kind),
		ev.Rule.LunarMonth, ev.Rule.LunarDay, ev.Rule.Interval, string(ev.Rule.Unit),
		toInt32s(ev.Reminders), ev.RecipientID, ev.CreatedAt, ev.UpdatedAt)
	if err != nil {
		return domain.Event{}, fmt.Errorf("inserting event: %w", err)
	}
	return ev, nil
}

func (s *PostgresStore) FetchAllEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, next_alert_at, timezone, rule_kind,
			lunar_month, lunar_day, recur_interval, recur_unit,
			reminders, recipient_id, created_at, updated_at
		FROM events
		ORDER BY next_alert_at
	`)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, title, next_alert_at, timezone, rule_kind,
			lunar_month, lunar_day, recur_interval, recur_unit,
			reminders, recipient_id, created_at, updated_at
		FROM events WHERE id = $1
	`, id)

	ev, err := scanEvent(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

// UpdateEvent replaces the full record by id.
func (s *PostgresStore) UpdateEvent(ctx context.Context, ev domain.Event) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE events SET title = $2, next_alert_at = $3, timezone = $4,
			rule_kind = $5, lunar_month = $6, lunar_day = $7,
			recur_interval = $8, recur_unit = $9, reminders = $10,
			recipient_id = $11, updated_at = $12
		WHERE id = $1
	`, ev.ID, ev.Title, ev.NextAlertAt, ev.Timezone, string(ev.Rule.Kind),
		ev.Rule.LunarMonth, ev.Rule.LunarDay, ev.Rule.Interval, string(ev.Rule.Unit),
		toInt32s(ev.Reminders), ev.RecipientID, ev.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteEventsByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("deleting events: %w", err)
	}
	return nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var ev domain.Event
	var kind, unit string
	var reminders []int32

	err := row.Scan(&ev.ID, &ev.Title, &ev.NextAlertAt, &ev.Timezone, &kind,
		&ev.Rule.LunarMonth, &ev.Rule.LunarDay, &ev.Rule.Interval, &unit,
		&reminders, &ev.RecipientID, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ev, err
		}
		return ev, fmt.Errorf("scanning event: %w", err)
	}

	ev.Rule.Kind = domain.RuleKind(kind)
	ev.Rule.Unit = domain.IntervalUnit(unit)
	ev.Reminders = toInts(reminders)
	// Re-anchor in the event's own zone so civil-calendar arithmetic
	// downstream sees the intended wall-clock time.
	ev.NextAlertAt = ev.NextAlertAt.In(ev.Location())
	return ev, nil
}

func toInt32s(in []int) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

func toInts(in []int32) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
