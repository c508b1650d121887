package monitor

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/agentctx/agentctx/internal/audit"
)

// hub manages the set of active WebSocket connections and broadcasts
// audit entries to all of them as they're recorded — the backend for
// the live audit feed (spec.md §4.3, component C3).
//
// Architecture: a single hub goroutine handles registration,
// unregistration, and broadcasting. This avoids needing locks on the
// connections map — all mutations happen in the hub goroutine via
// channels. The hub speaks audit.Entry, not raw bytes — JSON encoding
// happens once per connection's writePump, not once per broadcast, so
// a slow client's encoding cost never blocks the others.
type hub struct {
	connections map[*wsConn]bool
	broadcastCh chan audit.Entry

	registerCh   chan *wsConn
	unregisterCh chan *wsConn
}

// wsConn wraps a single WebSocket connection.
type wsConn struct {
	conn *websocket.Conn
	send chan audit.Entry
	mu   sync.Mutex // protects concurrent writes
}

// upgrader handles HTTP → WebSocket protocol upgrade. CheckOrigin
// allows all origins since the monitor is a local operator tool, not a
// public-facing service.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newHub() *hub {
	return &hub{
		connections:  make(map[*wsConn]bool),
		broadcastCh:  make(chan audit.Entry, 256),
		registerCh:   make(chan *wsConn),
		unregisterCh: make(chan *wsConn),
	}
}

// run is the hub's event loop. Runs in a background goroutine for the
// lifetime of the Monitor.
func (h *hub) run() {
	for {
		select {
		case conn := <-h.registerCh:
			h.connections[conn] = true
			slog.Debug("monitor client connected", "total", len(h.connections))

		case conn := <-h.unregisterCh:
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				close(conn.send)
				slog.Debug("monitor client disconnected", "total", len(h.connections))
			}

		case entry := <-h.broadcastCh:
			for conn := range h.connections {
				select {
				case conn.send <- entry:
				default:
					// Slow client — drop it rather than block the feed
					// for everyone else.
					delete(h.connections, conn)
					close(conn.send)
				}
			}
		}
	}
}

// broadcast sends entry to every connected client. Non-blocking — if
// the broadcast channel is full the entry is dropped, since the feed is
// best-effort (a client can always re-fetch /audit).
func (h *hub) broadcast(entry audit.Entry) {
	select {
	case h.broadcastCh <- entry:
	default:
	}
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("monitor websocket upgrade failed", "error", err)
		return
	}

	client := &wsConn{conn: conn, send: make(chan audit.Entry, 64)}
	h.registerCh <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *wsConn) writePump() {
	defer c.conn.Close()
	for entry := range c.send {
		data, err := json.Marshal(entry)
		if err != nil {
			slog.Error("failed to marshal audit entry for websocket client", "error", err)
			continue
		}
		c.mu.Lock()
		err = c.conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			return
		}
	}
}

// readPump only exists to detect client disconnection — the feed is
// one-directional, server to client.
func (c *wsConn) readPump(h *hub) {
	defer func() {
		h.unregisterCh <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
