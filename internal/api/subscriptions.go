package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yuehengyu/Lunara/internal/domain"
)

// SubscriptionStore covers delivery-target registration and removal.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, req domain.CreateSubscriptionRequest) (domain.Subscription, error)
	ListSubscriptionsByRecipient(ctx context.Context, recipientID string) ([]domain.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
}

type SubscriptionHandler struct {
	store  SubscriptionStore
	logger *slog.Logger
}

func NewSubscriptionHandler(store SubscriptionStore, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{store: store, logger: logger}
}

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RecipientID == "" {
		respondError(w, http.StatusBadRequest, "recipient_id is required")
		return
	}
	if req.EndpointURL == "" {
		respondError(w, http.StatusBadRequest, "endpoint_url is required")
		return
	}

	sub, err := h.store.CreateSubscription(r.Context(), req)
	if err != nil {
		h.logger.Error("subscription create failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create subscription")
		return
	}

	respondJSON(w, http.StatusCreated, sub)
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	recipientID := r.URL.Query().Get("recipient_id")
	if recipientID == "" {
		respondError(w, http.StatusBadRequest, "recipient_id is required")
		return
	}

	subs, err := h.store.ListSubscriptionsByRecipient(r.Context(), recipientID)
	if err != nil {
		h.logger.Error("subscription list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	respondJSON(w, http.StatusOK, subs)
}

func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteSubscription(r.Context(), id); err != nil {
		h.logger.Error("subscription delete failed", "error", err, "subscription_id", id)
		respondError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
