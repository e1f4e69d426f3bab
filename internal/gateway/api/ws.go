package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"denm-gateway/internal/general/logger"
	"denm-gateway/internal/general/metrics"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsReadDeadline = 60 * time.Second
	wsPingInterval = 30 * time.Second
	ctrlTimeout    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WSHub fans inbound DENMs out to every connected WebSocket client. Each
// connection gets its own writer lock so the ping loop and the broadcast
// path never interleave frames.
type WSHub struct {
	log *logger.Logger
	met *metrics.Metrics

	mu    sync.Mutex
	conns map[*websocket.Conn]*sync.Mutex
}

func NewWSHub(log *logger.Logger, met *metrics.Metrics) *WSHub {
	return &WSHub{
		log:   log,
		met:   met,
		conns: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Handle upgrades the request and parks in a read loop. Inbound frames are
// logged and discarded; the connection exists for server pushes only.
func (h *WSHub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error(r.Context(), "ws_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	defer conn.Close()

	h.add(conn)
	defer h.remove(conn)

	h.log.Info(r.Context(), "ws_connected", "WebSocket client connected", map[string]any{
		"remote": conn.RemoteAddr().String(),
	})

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})

	// ping loop keeps idle connections alive; a failed ping closes the
	// socket to unblock the reader
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			mu := h.lockOf(conn)
			if mu == nil {
				return
			}
			mu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(ctrlTimeout))
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
			mu.Unlock()
			if err != nil {
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn(r.Context(), "ws_unexpected_close", "connection closed unexpectedly", map[string]any{
					"error": err.Error(),
				})
			} else {
				h.log.Info(r.Context(), "ws_connection_closed", "connection closed", nil)
			}
			return
		}
		h.log.Debug(r.Context(), "ws_message_ignored", "inbound WS frame discarded", map[string]any{
			"bytes": len(payload),
		})
	}
}

// Broadcast pushes one DENM projection as a text frame to every connection.
// Runs on the caller's goroutine (the AMQP receiver loop); slow clients are
// bounded by the write timeout and dropped on failure.
func (h *WSHub) Broadcast(payload json.RawMessage) {
	for conn, mu := range h.snapshot() {
		mu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		err := conn.WriteMessage(websocket.TextMessage, payload)
		mu.Unlock()
		if err != nil {
			_ = conn.Close()
			h.remove(conn)
		}
	}
}

// Count reports the number of tracked connections.
func (h *WSHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *WSHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = &sync.Mutex{}
	h.met.WSConnections.Set(float64(len(h.conns)))
}

func (h *WSHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	h.met.WSConnections.Set(float64(len(h.conns)))
}

func (h *WSHub) lockOf(conn *websocket.Conn) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns[conn]
}

// snapshot copies the connection table so Broadcast iterates without holding
// the hub lock across socket writes.
func (h *WSHub) snapshot() map[*websocket.Conn]*sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[*websocket.Conn]*sync.Mutex, len(h.conns))
	for conn, mu := range h.conns {
		out[conn] = mu
	}
	return out
}
