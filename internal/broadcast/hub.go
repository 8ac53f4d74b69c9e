package broadcast

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chess-vn/livechess/internal/game"
	"github.com/chess-vn/livechess/pkg/logging"
)

// Conn is the write half of a client connection. *websocket.Conn satisfies
// it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Envelope is the wire format of every notification.
type Envelope struct {
	Type game.EventKind `json:"type"`
	Data game.Event     `json:"data"`
}

const outboxSize = 32

// client serializes writes to one connection through a buffered outbox.
// Messages to a slow consumer are dropped rather than blocking a session
// loop.
type client struct {
	id     string
	conn   Conn
	outbox chan []byte
	once   sync.Once
}

func newClient(id string, conn Conn) *client {
	c := &client{
		id:     id,
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
	}
	go c.writeLoop()
	return c
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for msg := range c.outbox {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logging.Error("write to client failed",
				zap.String("client_id", c.id),
				zap.Error(err),
			)
			return
		}
	}
}

func (c *client) send(msg []byte) {
	select {
	case c.outbox <- msg:
	default:
		logging.Error("client outbox full, dropping event", zap.String("client_id", c.id))
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.outbox) })
}

// Hub fans session events out to every connection in a session's room and
// delivers unicast notifications to a single identity's connection. An
// identity without a live connection simply misses its notifications; there
// is no queueing or offline delivery.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client             // identity id -> connection
	rooms   map[string]map[string]struct{} // session id -> identity ids
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]struct{}),
	}
}

// Register binds an identity to its connection. A previous connection for
// the same identity is closed.
func (h *Hub) Register(identityID string, conn Conn) {
	h.mu.Lock()
	prev := h.clients[identityID]
	h.clients[identityID] = newClient(identityID, conn)
	h.mu.Unlock()
	if prev != nil {
		prev.close()
	}
}

// Unregister drops the identity's binding if conn is still the registered
// connection, removing the identity from every room. It returns the session
// ids of the rooms left and whether the binding was removed. A conn that a
// newer Register already replaced leaves the live binding and its rooms
// untouched.
func (h *Hub) Unregister(identityID string, conn Conn) ([]string, bool) {
	h.mu.Lock()
	c, ok := h.clients[identityID]
	if !ok || c.conn != conn {
		h.mu.Unlock()
		return nil, false
	}
	delete(h.clients, identityID)
	var left []string
	for sessionID, members := range h.rooms {
		if _, member := members[identityID]; !member {
			continue
		}
		delete(members, identityID)
		left = append(left, sessionID)
		if len(members) == 0 {
			delete(h.rooms, sessionID)
		}
	}
	h.mu.Unlock()
	c.close()
	return left, true
}

// Join subscribes the identity's connection to a session's room.
func (h *Hub) Join(sessionID, identityID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[sessionID]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[sessionID] = members
	}
	members[identityID] = struct{}{}
}

// Leave unsubscribes the identity from a session's room.
func (h *Hub) Leave(sessionID, identityID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	delete(members, identityID)
	if len(members) == 0 {
		delete(h.rooms, sessionID)
	}
}

// Publish delivers one event to every member of the session's room.
// Fire-and-forget: undeliverable events are dropped.
func (h *Hub) Publish(sessionID string, event game.Event) {
	msg, err := json.Marshal(Envelope{Type: event.Kind(), Data: event})
	if err != nil {
		logging.Error("event marshal failed", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for identityID := range h.rooms[sessionID] {
		if c, ok := h.clients[identityID]; ok {
			c.send(msg)
		}
	}
}

// Send delivers one event to a single identity's connection, if it has one.
// Reports whether a connection was found; otherwise the event is dropped.
func (h *Hub) Send(identityID string, event game.Event) bool {
	msg, err := json.Marshal(Envelope{Type: event.Kind(), Data: event})
	if err != nil {
		logging.Error("event marshal failed", zap.Error(err))
		return false
	}
	h.mu.RLock()
	c, ok := h.clients[identityID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	c.send(msg)
	return true
}

// RoomSize is the number of connections subscribed to a session's room.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}
