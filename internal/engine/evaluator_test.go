package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/yuehengyu/Lunara/internal/clock"
	"github.com/yuehengyu/Lunara/internal/delivery"
	"github.com/yuehengyu/Lunara/internal/domain"
)

type fakeEventStore struct {
	mu        sync.Mutex
	events    []domain.Event
	failFetch bool
	updated   []domain.Event
	deleted   []string
}

func (s *fakeEventStore) FetchAllEvents(context.Context) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFetch {
		return nil, errors.New("store unavailable")
	}
	return append([]domain.Event(nil), s.events...), nil
}

func (s *fakeEventStore) UpdateEvent(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, ev)
	for i := range s.events {
		if s.events[i].ID == ev.ID {
			s.events[i] = ev
		}
	}
	return nil
}

func (s *fakeEventStore) DeleteEventsByIDs(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, ids...)
	return nil
}

type fakeSubStore struct {
	byRecipient map[string][]domain.Subscription
}

func (s *fakeSubStore) ListSubscriptionsByRecipient(_ context.Context, recipientID string) ([]domain.Subscription, error) {
	return s.byRecipient[recipientID], nil
}

type fakeGateway struct {
	mu          sync.Mutex
	result      delivery.Result
	sent        []delivery.Payload
	invalidated []string
}

func (g *fakeGateway) Send(_ context.Context, _ domain.Subscription, p delivery.Payload) delivery.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, p)
	return g.result
}

func (g *fakeGateway) Invalidate(_ context.Context, target domain.Subscription) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.invalidated = append(g.invalidated, target.ID)
	return nil
}

func testEvaluator(store *fakeEventStore, gw *fakeGateway, clk clock.Clock) *Evaluator {
	subs := &fakeSubStore{byRecipient: map[string][]domain.Subscription{
		"alice": {{ID: "sub-1", RecipientID: "alice", EndpointURL: "http://example.test/hook"}},
	}}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewEvaluator(store, subs, gw, NewMemoryDedupeCache(), clk, Config{
		LookBack:      2 * time.Minute,
		LookAhead:     15 * time.Minute,
		RolloverGrace: time.Minute,
		ReapGrace:     time.Minute,
		SafetyGrace:   2 * time.Hour,
		DigestZone:    time.UTC,
	}, logger)
}

func TestEvaluator_DeliversDueReminderOnce(t *testing.T) {
	now := time.Date(2024, 5, 20, 13, 55, 0, 0, time.UTC)
	store := &fakeEventStore{events: []domain.Event{{
		ID:          "evt-1",
		Title:       "dentist",
		NextAlertAt: now.Add(10 * time.Minute),
		Timezone:    "UTC",
		Rule:        domain.Rule{Kind: domain.RuleNone},
		Reminders:   []int{10},
		RecipientID: "alice",
	}}}
	gw := &fakeGateway{result: delivery.Result{Delivered: true}}
	ev := testEvaluator(store, gw, clock.Fixed{T: now})

	sum, err := ev.RunInstant(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Matched != 1 || sum.Delivered != 1 {
		t.Fatalf("expected 1 matched and 1 delivered, got %+v", sum)
	}
	if len(gw.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(gw.sent))
	}

	// The same pass re-run must not re-send: the dedup cache already
	// holds (event, offset, occurrence).
	sum, err = ev.RunInstant(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Matched != 0 || len(gw.sent) != 1 {
		t.Errorf("second pass re-sent: %+v, %d sends", sum, len(gw.sent))
	}
}

func TestEvaluator_RollsOverElapsedRecurring(t *testing.T) {
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	anchor := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	store := &fakeEventStore{events: []domain.Event{{
		ID:          "evt-1",
		Title:       "standup",
		NextAlertAt: anchor,
		Timezone:    "UTC",
		Rule:        domain.Rule{Kind: domain.RuleDaily},
		RecipientID: "alice",
	}}}
	gw := &fakeGateway{result: delivery.Result{Delivered: true}}
	ev := testEvaluator(store, gw, clock.Fixed{T: now})

	sum, err := ev.RunInstant(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Advanced != 1 {
		t.Fatalf("expected 1 advance, got %+v", sum)
	}

	want := time.Date(2024, 5, 21, 9, 0, 0, 0, time.UTC)
	if len(store.updated) != 1 || !store.updated[0].NextAlertAt.Equal(want) {
		t.Errorf("store should hold the advanced anchor %v, got %+v", want, store.updated)
	}

	// Re-running against the same instant is a no-op: the advance is
	// idempotent once applied.
	sum, _ = ev.RunInstant(context.Background())
	if sum.Advanced != 0 {
		t.Errorf("second pass advanced again: %+v", sum)
	}
}

func TestEvaluator_ReapsElapsedNonRecurring(t *testing.T) {
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	store := &fakeEventStore{events: []domain.Event{{
		ID:          "evt-1",
		Title:       "one-off",
		NextAlertAt: now.Add(-3 * time.Hour),
		Timezone:    "UTC",
		Rule:        domain.Rule{Kind: domain.RuleNone},
		Reminders:   []int{0},
		RecipientID: "alice",
	}}}
	gw := &fakeGateway{result: delivery.Result{Delivered: true}}
	ev := testEvaluator(store, gw, clock.Fixed{T: now})

	sum, err := ev.RunInstant(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Reaped != 1 || len(store.deleted) != 1 || store.deleted[0] != "evt-1" {
		t.Errorf("expected evt-1 reaped, got %+v deleted=%v", sum, store.deleted)
	}
	// Reaped events leave the local view before matching.
	if sum.Matched != 0 || len(gw.sent) != 0 {
		t.Errorf("reaped event must not be matched or delivered: %+v", sum)
	}
}

func TestEvaluator_TerminalFailureInvalidatesTarget(t *testing.T) {
	now := time.Date(2024, 5, 20, 13, 55, 0, 0, time.UTC)
	store := &fakeEventStore{events: []domain.Event{{
		ID:          "evt-1",
		Title:       "dentist",
		NextAlertAt: now.Add(10 * time.Minute),
		Timezone:    "UTC",
		Rule:        domain.Rule{Kind: domain.RuleNone},
		Reminders:   []int{10},
		RecipientID: "alice",
	}}}
	gw := &fakeGateway{result: delivery.Result{Terminal: true, Err: errors.New("gone")}}
	ev := testEvaluator(store, gw, clock.Fixed{T: now})

	sum, err := ev.RunInstant(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Invalidated != 1 || len(gw.invalidated) != 1 || gw.invalidated[0] != "sub-1" {
		t.Errorf("terminal failure should invalidate sub-1, got %+v %v", sum, gw.invalidated)
	}
	// Not delivered, so the reminder stays sendable for the next pass.
	if sum.Delivered != 0 {
		t.Errorf("terminal failure is not a delivery: %+v", sum)
	}
}

func TestEvaluator_TransientFailureLeavesReminderDue(t *testing.T) {
	now := time.Date(2024, 5, 20, 13, 55, 0, 0, time.UTC)
	store := &fakeEventStore{events: []domain.Event{{
		ID:          "evt-1",
		Title:       "dentist",
		NextAlertAt: now.Add(10 * time.Minute),
		Timezone:    "UTC",
		Rule:        domain.Rule{Kind: domain.RuleNone},
		Reminders:   []int{10},
		RecipientID: "alice",
	}}}
	gw := &fakeGateway{result: delivery.Result{Err: errors.New("503")}}
	ev := testEvaluator(store, gw, clock.Fixed{T: now})

	if _, err := ev.RunInstant(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Next pass re-matches and re-sends: no explicit retry machinery,
	// just re-evaluation.
	gw.result = delivery.Result{Delivered: true}
	sum, _ := ev.RunInstant(context.Background())
	if sum.Matched != 1 || sum.Delivered != 1 {
		t.Errorf("transient failure should be retried by the next pass, got %+v", sum)
	}
}

func TestEvaluator_StoreReadFailureSurfaces(t *testing.T) {
	store := &fakeEventStore{failFetch: true}
	gw := &fakeGateway{}
	ev := testEvaluator(store, gw, clock.Fixed{T: time.Now()})

	if _, err := ev.RunInstant(context.Background()); err == nil {
		t.Error("a failed fetch must surface to the driver")
	}
}

func TestEvaluator_DigestWindowCoversNextDay(t *testing.T) {
	now := time.Date(2024, 5, 20, 21, 0, 0, 0, time.UTC)
	store := &fakeEventStore{events: []domain.Event{
		{
			ID:          "tomorrow",
			Title:       "flight",
			NextAlertAt: time.Date(2024, 5, 21, 10, 0, 0, 0, time.UTC),
			Timezone:    "UTC",
			Rule:        domain.Rule{Kind: domain.RuleNone},
			Reminders:   []int{0},
			RecipientID: "alice",
		},
		{
			ID:          "next-week",
			Title:       "rent",
			NextAlertAt: time.Date(2024, 5, 27, 10, 0, 0, 0, time.UTC),
			Timezone:    "UTC",
			Rule:        domain.Rule{Kind: domain.RuleNone},
			Reminders:   []int{0},
			RecipientID: "alice",
		},
	}}
	gw := &fakeGateway{result: delivery.Result{Delivered: true}}
	ev := testEvaluator(store, gw, clock.Fixed{T: now})

	sum, err := ev.RunDigest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Matched != 1 || sum.Delivered != 1 {
		t.Errorf("only tomorrow's event belongs in the digest, got %+v", sum)
	}
}
