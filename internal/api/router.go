package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yuehengyu/Lunara/internal/clock"
	"github.com/yuehengyu/Lunara/internal/engine"
	ws "github.com/yuehengyu/Lunara/internal/websocket"
)

// Stores bundles the two store slices the handlers need.
type Stores interface {
	EventStore
	SubscriptionStore
}

// NewRouter creates and configures the HTTP router.
func NewRouter(stores Stores, evaluator *engine.Evaluator, clk clock.Clock, hub *ws.Hub, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	eventHandler := NewEventHandler(stores, clk, logger)
	subHandler := NewSubscriptionHandler(stores, logger)
	triggerHandler := NewTriggerHandler(evaluator, logger)

	if hub != nil {
		r.Get("/ws", hub.HandleWebSocket)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler())

		r.Route("/events", func(r chi.Router) {
			r.Post("/", eventHandler.Create)
			r.Get("/", eventHandler.List)
			r.Get("/{id}", eventHandler.Get)
			r.Delete("/{id}", eventHandler.Delete)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", subHandler.Create)
			r.Get("/", subHandler.List)
			r.Delete("/{id}", subHandler.Delete)
		})

		r.Post("/check", triggerHandler.Check)
		r.Post("/digest", triggerHandler.Digest)
	})

	return r
}
