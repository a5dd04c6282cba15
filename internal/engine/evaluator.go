package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuehengyu/Lunara/internal/clock"
	"github.com/yuehengyu/Lunara/internal/delivery"
	"github.com/yuehengyu/Lunara/internal/domain"
	"github.com/yuehengyu/Lunara/internal/recurrence"
)

// EventStore is the slice of the durable store the evaluator needs.
// Writes are best-effort: a failed write loses one event's change
// until the next pass recomputes it.
type EventStore interface {
	FetchAllEvents(ctx context.Context) ([]domain.Event, error)
	UpdateEvent(ctx context.Context, ev domain.Event) error
	DeleteEventsByIDs(ctx context.Context, ids []string) error
}

// SubscriptionStore resolves a recipient to its delivery targets.
type SubscriptionStore interface {
	ListSubscriptionsByRecipient(ctx context.Context, recipientID string) ([]domain.Subscription, error)
}

// Feed receives delivery outcomes for live observers. Nil disables it.
type Feed interface {
	PublishOutcome(digest domain.Digest, delivered bool)
}

// dedupeRetention is how long past its occurrence a sent-reminder key
// stays in the cache before eviction. Wide enough to absorb clock and
// latency skew between the two drivers.
const dedupeRetention = 2 * time.Hour

// Config carries the per-deployment knobs of an evaluation pass.
type Config struct {
	LookBack      time.Duration // instant window backward tolerance
	LookAhead     time.Duration // instant window forward reach
	RolloverGrace time.Duration
	ReapGrace     time.Duration // instant pass (actively observed)
	SafetyGrace   time.Duration // digest pass (skew safety net)
	DigestZone    *time.Location
	PreviewCount  int
}

// Summary reports what one pass did, for logs and trigger responses.
type Summary struct {
	Scanned     int `json:"scanned"`
	Advanced    int `json:"advanced"`
	Reaped      int `json:"reaped"`
	Matched     int `json:"matched"`
	Delivered   int `json:"delivered"`
	Invalidated int `json:"invalidated"`
}

// Evaluator runs the full fetch → rollover → reap → match → digest →
// deliver pass. It holds no state of its own between passes beyond the
// dedup cache, so concurrent and overlapping invocations converge: the
// arithmetic is deterministic and anchors only move forward.
type Evaluator struct {
	store      EventStore
	subs       SubscriptionStore
	gateway    delivery.Gateway
	cache      DedupeCache
	clock      clock.Clock
	aggregator *Aggregator
	cfg        Config
	logger     *slog.Logger
	feed       Feed
}

func NewEvaluator(
	store EventStore,
	subs SubscriptionStore,
	gateway delivery.Gateway,
	cache DedupeCache,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Evaluator {
	if cfg.DigestZone == nil {
		cfg.DigestZone = time.UTC
	}
	return &Evaluator{
		store:      store,
		subs:       subs,
		gateway:    gateway,
		cache:      cache,
		clock:      clk,
		aggregator: NewAggregator(cfg.PreviewCount),
		cfg:        cfg,
		logger:     logger,
	}
}

// SetFeed attaches a live outcome feed. Called once during wiring,
// before any pass runs.
func (e *Evaluator) SetFeed(f Feed) { e.feed = f }

// RunInstant evaluates the short forward-looking window with the short
// reap grace. This is the frequently triggered check.
func (e *Evaluator) RunInstant(ctx context.Context) (Summary, error) {
	now := e.clock.Now()
	w := InstantWindow(now, e.cfg.LookBack, e.cfg.LookAhead)
	return e.run(ctx, now, w, e.cfg.ReapGrace)
}

// RunDigest evaluates the next full calendar day in the reference zone
// with the long safety-net reap grace. This is the once-daily batch.
func (e *Evaluator) RunDigest(ctx context.Context) (Summary, error) {
	now := e.clock.Now()
	w := DigestWindow(now, e.cfg.DigestZone)
	return e.run(ctx, now, w, e.cfg.SafetyGrace)
}

func (e *Evaluator) run(ctx context.Context, now time.Time, w Window, reapGrace time.Duration) (Summary, error) {
	var sum Summary

	events, err := e.store.FetchAllEvents(ctx)
	if err != nil {
		// Nothing computed this pass; the next one re-evaluates.
		return sum, fmt.Errorf("fetching events: %w", err)
	}
	sum.Scanned = len(events)

	// Rollover: advance elapsed recurring anchors. The local copy is
	// updated even when the write fails, so the rest of this pass sees
	// the forward value; the store converges on a later pass.
	for i := range events {
		candidate, ok, softErr := MaybeAdvance(events[i], now, e.cfg.RolloverGrace)
		if softErr != nil && errors.Is(softErr, recurrence.ErrIterationLimit) {
			e.logger.Warn("recurrence iteration limit",
				"event_id", events[i].ID,
				"rule", events[i].Rule.Kind,
			)
		}
		if !ok {
			continue
		}
		events[i].NextAlertAt = candidate
		events[i].UpdatedAt = now
		sum.Advanced++

		if err := e.store.UpdateEvent(ctx, events[i]); err != nil {
			e.logger.Error("event update failed", "error", err, "event_id", events[i].ID)
		}
	}

	// Reap: elapsed non-recurring events leave the local view
	// immediately; the durable delete is fire-and-forget.
	reapIDs := Reap(events, now, reapGrace)
	if len(reapIDs) > 0 {
		sum.Reaped = len(reapIDs)
		if err := e.store.DeleteEventsByIDs(ctx, reapIDs); err != nil {
			e.logger.Error("event deletion failed", "error", err, "event_ids", reapIDs)
		}
		events = dropIDs(events, reapIDs)
	}

	// Match: reminders due inside the window, minus what was already
	// sent for the same occurrence.
	var matches []domain.Match
	var keys []DedupeKey
	for _, ev := range events {
		for _, alert := range MatchReminders(ev.NextAlertAt, ev.Reminders, w) {
			key := DedupeKey{
				EventID:       ev.ID,
				OffsetMinutes: alert.OffsetMinutes,
				Occurrence:    ev.NextAlertAt,
			}
			if e.cache.Seen(ctx, key) {
				continue
			}
			matches = append(matches, domain.Match{
				Event:         ev,
				OffsetMinutes: alert.OffsetMinutes,
				AlertAt:       alert.AlertAt,
			})
			keys = append(keys, key)
		}
	}
	sum.Matched = len(matches)

	// Digest and deliver.
	for _, digest := range e.aggregator.Aggregate(matches) {
		delivered, invalidated := e.deliver(ctx, digest)
		if delivered {
			sum.Delivered++
			e.markDelivered(ctx, digest.RecipientID, matches, keys)
		}
		sum.Invalidated += invalidated
		if e.feed != nil {
			e.feed.PublishOutcome(digest, delivered)
		}
	}

	if err := e.cache.Evict(ctx, now.Add(-dedupeRetention)); err != nil {
		e.logger.Error("dedupe eviction failed", "error", err)
	}

	e.logger.Info("evaluation pass complete",
		"scanned", sum.Scanned,
		"advanced", sum.Advanced,
		"reaped", sum.Reaped,
		"matched", sum.Matched,
		"delivered", sum.Delivered,
		"invalidated", sum.Invalidated,
	)
	return sum, nil
}

// deliver sends one digest to every target of its recipient. Terminal
// failures invalidate the target; transient ones wait for the next
// pass. Returns whether at least one target accepted the payload and
// how many targets were invalidated.
func (e *Evaluator) deliver(ctx context.Context, digest domain.Digest) (bool, int) {
	targets, err := e.subs.ListSubscriptionsByRecipient(ctx, digest.RecipientID)
	if err != nil {
		e.logger.Error("listing subscriptions failed", "error", err, "recipient_id", digest.RecipientID)
		return false, 0
	}
	if len(targets) == 0 {
		e.logger.Debug("no delivery targets", "recipient_id", digest.RecipientID)
		return false, 0
	}

	payload := delivery.Payload{
		Title:     digest.Title,
		Body:      digest.Body,
		DedupeTag: digest.DedupeTag,
	}

	delivered := false
	invalidated := 0
	for _, target := range targets {
		res := e.gateway.Send(ctx, target, payload)
		switch {
		case res.Delivered:
			delivered = true
		case res.Terminal:
			if err := e.gateway.Invalidate(ctx, target); err != nil {
				e.logger.Error("invalidation failed", "error", err, "subscription_id", target.ID)
			} else {
				invalidated++
			}
		}
	}
	return delivered, invalidated
}

// markDelivered records the dedup keys of one recipient's matches.
func (e *Evaluator) markDelivered(ctx context.Context, recipientID string, matches []domain.Match, keys []DedupeKey) {
	for i, m := range matches {
		if m.Event.RecipientID != recipientID {
			continue
		}
		if err := e.cache.Mark(ctx, keys[i]); err != nil {
			e.logger.Error("dedupe mark failed", "error", err, "key", keys[i].String())
		}
	}
}

func dropIDs(events []domain.Event, ids []string) []domain.Event {
	doomed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		doomed[id] = struct{}{}
	}
	kept := events[:0]
	for _, ev := range events {
		if _, gone := doomed[ev.ID]; !gone {
			kept = append(kept, ev)
		}
	}
	return kept
}
