package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yuehengyu/Lunara/internal/domain"
)

// Store keeps events and subscriptions in process memory. It backs the
// client-style driver, which holds the full event set locally anyway,
// and the evaluator tests.
type Store struct {
	mu     sync.RWMutex
	events map[string]domain.Event
	subs   map[string]domain.Subscription
}

func NewStore() *Store {
	return &Store{
		events: make(map[string]domain.Event),
		subs:   make(map[string]domain.Subscription),
	}
}

func (s *Store) InsertEvent(_ context.Context, ev domain.Event) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ev.CreatedAt = now
	ev.UpdatedAt = now
	s.events[ev.ID] = ev
	return ev, nil
}

// FetchAllEvents returns cloned records sorted by next alert, so a
// caller mutating its copy cannot corrupt the store.
func (s *Store) FetchAllEvents(context.Context) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]domain.Event, 0, len(s.events))
	for _, ev := range s.events {
		ev.Reminders = append([]int(nil), ev.Reminders...)
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].NextAlertAt.Before(events[j].NextAlertAt)
	})
	return events, nil
}

func (s *Store) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	ev.Reminders = append([]int(nil), ev.Reminders...)
	return &ev, nil
}

// UpdateEvent replaces the full record by id.
func (s *Store) UpdateEvent(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[ev.ID]; !ok {
		return fmt.Errorf("event %s not found", ev.ID)
	}
	s.events[ev.ID] = ev
	return nil
}

func (s *Store) DeleteEventsByIDs(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.events, id)
	}
	return nil
}

func (s *Store) CreateSubscription(_ context.Context, req domain.CreateSubscriptionRequest) (domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := domain.Subscription{
		ID:          uuid.NewString(),
		RecipientID: req.RecipientID,
		EndpointURL: req.EndpointURL,
		CreatedAt:   time.Now().UTC(),
	}
	s.subs[sub.ID] = sub
	return sub, nil
}

func (s *Store) ListSubscriptionsByRecipient(_ context.Context, recipientID string) ([]domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var subs []domain.Subscription
	for _, sub := range s.subs {
		if sub.RecipientID == recipientID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.Before(subs[j].CreatedAt) })
	return subs, nil
}

func (s *Store) DeleteSubscription(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subs, id)
	return nil
}
