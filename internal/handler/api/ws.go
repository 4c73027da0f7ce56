package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	models "MarketPulse/internal/domain/models"
	xlogger "MarketPulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const writeTimeout = 5 * time.Second

// TickHub fans tick results out to websocket subscribers. It implements the
// pipeline's Dispatcher, so every completed tick reaches connected clients
// without the pipeline knowing about websockets.
type TickHub struct {
	log      *xlogger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewTickHub(log *xlogger.Logger) *TickHub {
	return &TickHub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Serve upgrades the request and keeps the connection subscribed until the
// peer goes away.
func (h *TickHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", xlogger.Error(err))
		return err
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("ws client connected", xlogger.Int("clients", n))

	go h.drain(conn)
	return nil
}

// drain reads until the peer closes, then drops the client. Inbound payloads
// are ignored; the stream is one-way.
func (h *TickHub) drain(conn *websocket.Conn) {
	defer h.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *TickHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// Dispatch implements repository.Dispatcher.
func (h *TickHub) Dispatch(_ context.Context, res *models.TickResult) {
	h.Broadcast(res)
}

// Broadcast sends one tick result to every connected client. Slow or broken
// clients are dropped rather than allowed to stall the tick.
func (h *TickHub) Broadcast(res *models.TickResult) {
	payload, err := json.Marshal(res)
	if err != nil {
		h.log.Error("ws marshal failed", xlogger.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}

// Clients reports the current subscriber count.
func (h *TickHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *TickHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}
