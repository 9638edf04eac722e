package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seniorcare/nightwatchman/internal/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StateHub broadcasts engine snapshots to WebSocket clients. The pipeline
// pushes a snapshot after every tick that changed something.
type StateHub struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	log     *zap.Logger
}

// NewStateHub creates an empty hub.
func NewStateHub(log *zap.Logger) *StateHub {
	return &StateHub{
		clients: make(map[*websocket.Conn]bool),
		log:     log,
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StateHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Broadcast sends the snapshot to every connected client. Send failures are
// left for the read loop to notice and clean up.
func (h *StateHub) Broadcast(snap engine.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(map[string]any{
		"system_state":  snap.SystemState,
		"posture_state": snap.PostureState,
		"category":      snap.Category,
		"alert_count":   snap.AlertCount,
		"timestamp":     time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}

	for conn := range h.clients {
		conn.WriteMessage(websocket.TextMessage, msg)
	}
}

// ClientCount reports how many WebSocket clients are connected.
func (h *StateHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
