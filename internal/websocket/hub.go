package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yuehengyu/Lunara/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// OutcomeEvent is one delivery outcome pushed to connected observers.
type OutcomeEvent struct {
	Type        string    `json:"type"` // "digest_delivered" or "digest_failed"
	RecipientID string    `json:"recipient_id"`
	Title       string    `json:"title"`
	ItemCount   int       `json:"item_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// Hub fans delivery outcomes out to every connected client. A slow
// client is dropped rather than allowed to stall the broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]chan []byte),
		logger:  logger,
	}
}

// PublishOutcome implements the evaluator's feed.
func (h *Hub) PublishOutcome(digest domain.Digest, delivered bool) {
	typ := "digest_failed"
	if delivered {
		typ = "digest_delivered"
	}
	msg, err := json.Marshal(OutcomeEvent{
		Type:        typ,
		RecipientID: digest.RecipientID,
		Title:       digest.Title,
		ItemCount:   digest.ItemCount,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn, send := range h.clients {
		select {
		case send <- msg:
		default:
			h.logger.Debug("dropping slow feed client")
			go h.drop(conn)
		}
	}
}

// HandleWebSocket upgrades the connection and streams outcomes until
// the peer goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	send := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()
	h.logger.Debug("feed client connected")

	go func() {
		defer h.drop(conn)
		for msg := range send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	// Reader only notices disconnects; inbound frames are ignored.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	send, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()
	if ok {
		conn.Close()
		h.logger.Debug("feed client disconnected")
	}
}
