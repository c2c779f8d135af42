package auth

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 2 * time.Second

// Event is pushed to a session's open connections when its state
// changes. A signed_out event tells every tab of that session to drop
// its view and return to the sign-in page.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// Event types.
const (
	EventSignedOut = "signed_out"
)

// conn is the subset of *websocket.Conn the hub needs, so tests can
// record broadcasts without a network.
type conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Hub tracks the open connections of each session and fans events out
// to them. Connections that fail a write are dropped.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[conn]struct{}),
	}
}

// AddWS registers a websocket connection under its session.
func (h *Hub) AddWS(sessionID string, ws *websocket.Conn) {
	h.add(sessionID, ws)
}

// RemoveWS unregisters and closes a websocket connection.
func (h *Hub) RemoveWS(sessionID string, ws *websocket.Conn) {
	h.remove(sessionID, ws)
}

func (h *Hub) add(sessionID string, c conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.sessions[sessionID]
	if !ok {
		set = make(map[conn]struct{})
		h.sessions[sessionID] = set
	}

	set[c] = struct{}{}
}

func (h *Hub) remove(sessionID string, c conn) {
	h.mu.Lock()

	if set, ok := h.sessions[sessionID]; ok {
		delete(set, c)

		if len(set) == 0 {
			delete(h.sessions, sessionID)
		}
	}

	h.mu.Unlock()

	_ = c.Close()
}

// SignedOut pushes a signed_out event to every connection of the
// session and closes them.
func (h *Hub) SignedOut(sessionID string) {
	h.broadcast(sessionID, Event{Type: EventSignedOut, SessionID: sessionID})
}

func (h *Hub) broadcast(sessionID string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.sessions[sessionID]
	for c := range set {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = c.WriteMessage(websocket.TextMessage, payload)
		_ = c.Close()

		delete(set, c)
	}

	if len(set) == 0 {
		delete(h.sessions, sessionID)
	}
}

// Count reports the number of open connections across all sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0
	for _, set := range h.sessions {
		total += len(set)
	}

	return total
}
