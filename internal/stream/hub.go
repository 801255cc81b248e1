// Package stream broadcasts cycle summaries to websocket clients so a
// browser or script can follow a long run live.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cemhyd/internal/hydration"
	"cemhyd/internal/logging"
	"cemhyd/internal/phase"
)

const writeWait = 5 * time.Second

// Frame is the JSON message sent for every cycle.
type Frame struct {
	Type        string         `json:"type"`
	Cycle       int            `json:"cycle"`
	Final       bool           `json:"final"`
	Time        float64        `json:"timeHours"`
	Temperature float64        `json:"temperature"`
	Alpha       float64        `json:"alpha"`
	Heat        float64        `json:"heat"`
	PH          float64        `json:"ph"`
	Curing      string         `json:"curing"`
	Set         bool           `json:"set"`
	Connected   [3]bool        `json:"poreConnected"`
	Counts      map[string]int `json:"counts"`
	Diffusing   int            `json:"diffusing"`
}

// NewFrame summarizes a cycle report.
func NewFrame(r hydration.CycleReport) Frame {
	st := r.State
	f := Frame{
		Type:        "cycle",
		Cycle:       st.Cycle,
		Final:       r.Final,
		Time:        st.Time,
		Temperature: st.Temperature,
		Alpha:       st.AlphaMass,
		Heat:        st.Heat,
		PH:          st.PH,
		Curing:      st.Curing.String(),
		Set:         st.Set,
		Connected:   st.PoreConnected,
		Counts:      map[string]int{},
		Diffusing:   r.Reaction.Left,
	}
	for _, p := range phase.All {
		if n := r.Counts[p]; n > 0 {
			f.Counts[p.String()] = n
		}
	}
	return f
}

// Hub tracks connected clients and fans frames out to them. Each
// connection has its own write lock; the client map has a read-write lock.
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
	last    []byte
}

// NewHub returns a hub accepting connections from any origin.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:     logging.OrDiscard(log),
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects. A new client first receives the latest frame, if any.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	lock := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = lock
	last := h.last
	h.mu.Unlock()
	defer h.drop(conn)
	h.log.Debug("stream client connected", "remote", r.RemoteAddr)

	if last != nil {
		if err := write(conn, lock, last); err != nil {
			return
		}
	}
	// Clients do not send anything meaningful; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Debug("stream client gone", "remote", r.RemoteAddr, "err", err)
			return
		}
	}
}

// ObserveCycle implements hydration.Observer. Clients that fail a write are
// dropped; they never fail the run.
func (h *Hub) ObserveCycle(_ context.Context, r hydration.CycleReport) error {
	msg, err := json.Marshal(NewFrame(r))
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.last = msg
	h.mu.Unlock()

	h.mu.RLock()
	var dead []*websocket.Conn
	for conn, lock := range h.clients {
		if err := write(conn, lock, msg); err != nil {
			dead = append(dead, conn)
		}
	}
	h.mu.RUnlock()
	for _, conn := range dead {
		h.drop(conn)
		conn.Close()
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, lock := range h.clients {
		lock.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
			time.Now().Add(writeWait))
		lock.Unlock()
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

func write(conn *websocket.Conn, lock *sync.Mutex, msg []byte) error {
	lock.Lock()
	defer lock.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, msg)
}
