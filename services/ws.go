package services

import (
	"sync"

	"github.com/jenkinph/procedure-passport/logger"
	"github.com/jenkinph/procedure-passport/models"
)

// AdminRoom receives every case_saved event.
const AdminRoom = "admin"

// ResidentRoom is the room of one resident's dashboards.
func ResidentRoom(email string) string {
	return "resident:" + models.NormalizeEmail(email)
}

// Event is a message pushed to dashboard sockets.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Conn is the part of a websocket connection the hub uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

type client struct {
	conn Conn
	mu   sync.Mutex // serializes writes
}

func (c *client) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub tracks dashboard sockets per room.
type Hub struct {
	log   *logger.Logger
	mu    sync.Mutex
	rooms map[string]map[Conn]*client
}

func NewHub(baseLog *logger.Logger) *Hub {
	return &Hub{
		log:   baseLog.With("service", "Hub"),
		rooms: make(map[string]map[Conn]*client),
	}
}

func (h *Hub) join(room string, conn Conn) *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[Conn]*client)
		h.rooms[room] = members
	}
	c := &client{conn: conn}
	members[conn] = c
	return c
}

func (h *Hub) leave(room string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[room]
	delete(members, conn)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Count reports how many sockets are in room.
func (h *Hub) Count(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

// Serve keeps conn in room until the peer disconnects. Incoming messages
// are ignored. It returns after closing conn.
func (h *Hub) Serve(room string, conn Conn) {
	c := h.join(room, conn)
	defer func() {
		h.leave(room, conn)
		_ = conn.Close()
	}()
	_ = c.send(Event{Type: "connected", Data: room})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Notify sends ev to every socket in room. Sockets that fail are closed,
// which ends their Serve loop.
func (h *Hub) Notify(room string, ev Event) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.send(ev); err != nil {
			h.log.Warn("dashboard push failed", "room", room, "error", err)
			_ = c.conn.Close()
		}
	}
}
