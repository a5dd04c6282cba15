package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yuehengyu/Lunara/internal/clock"
	"github.com/yuehengyu/Lunara/internal/domain"
	"github.com/yuehengyu/Lunara/internal/recurrence"
)

// EventStore is what the handlers need from the durable store.
type EventStore interface {
	InsertEvent(ctx context.Context, ev domain.Event) (domain.Event, error)
	FetchAllEvents(ctx context.Context) ([]domain.Event, error)
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	DeleteEventsByIDs(ctx context.Context, ids []string) error
}

type EventHandler struct {
	store  EventStore
	clock  clock.Clock
	logger *slog.Logger
}

func NewEventHandler(store EventStore, clk clock.Clock, logger *slog.Logger) *EventHandler {
	return &EventHandler{store: store, clock: clk, logger: logger}
}

type createEventRequest struct {
	Title       string      `json:"title"`
	StartAt     string      `json:"start_at"` // RFC 3339
	Timezone    string      `json:"timezone"`
	Rule        domain.Rule `json:"rule"`
	Reminders   []int       `json:"reminders"`
	RecipientID string      `json:"recipient_id"`
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.RecipientID == "" {
		respondError(w, http.StatusBadRequest, "recipient_id is required")
		return
	}
	for _, offset := range req.Reminders {
		if offset < 0 {
			respondError(w, http.StatusBadRequest, "reminder offsets must be non-negative")
			return
		}
	}

	zone := req.Timezone
	if zone == "" {
		zone = "UTC"
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown timezone")
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		respondError(w, http.StatusBadRequest, "start_at must be RFC 3339")
		return
	}
	start = start.In(loc)

	// The initial anchor is computed once at creation; afterwards only
	// the rollover path moves it.
	anchor, err := recurrence.Resolve(start, req.Rule, h.clock.Now())
	if err != nil && !errors.Is(err, recurrence.ErrIterationLimit) {
		respondError(w, http.StatusBadRequest, "unresolvable recurrence rule")
		return
	}

	ev, err := h.store.InsertEvent(r.Context(), domain.Event{
		Title:       req.Title,
		NextAlertAt: anchor,
		Timezone:    zone,
		Rule:        req.Rule.Normalize(),
		Reminders:   req.Reminders,
		RecipientID: req.RecipientID,
	})
	if err != nil {
		h.logger.Error("event insert failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	respondJSON(w, http.StatusCreated, ev)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.FetchAllEvents(r.Context())
	if err != nil {
		h.logger.Error("event list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ev, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		h.logger.Error("event get failed", "error", err, "event_id", id)
		respondError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if ev == nil {
		respondError(w, http.StatusNotFound, "event not found")
		return
	}
	respondJSON(w, http.StatusOK, ev)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteEventsByIDs(r.Context(), []string{id}); err != nil {
		h.logger.Error("event delete failed", "error", err, "event_id", id)
		respondError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
