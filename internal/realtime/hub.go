package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Options tunes the per-client transport behavior.
type Options struct {
	SendBuffer int
	WriteWait  time.Duration
	PongWait   time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	return o
}

// Hub maintains the per-session sets of connected clients and fans
// session-scoped events out to them. Rooms are ephemeral routing state:
// the session record itself lives in the registry, not here.
type Hub struct {
	logger *slog.Logger
	opts   Options

	mu    sync.Mutex
	rooms map[string]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger, opts Options) *Hub {
	return &Hub{
		logger: logger,
		opts:   opts.withDefaults(),
		rooms:  make(map[string]map[*Client]struct{}),
	}
}

// Join subscribes a client to a session's room. A client holds at most one
// subscription: joining while subscribed elsewhere performs an implicit
// leave first. Existing members are notified of the joiner.
func (h *Hub) Join(c *Client, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.sessionID == sessionID {
		return
	}
	if c.sessionID != "" {
		h.leaveLocked(c)
	}

	room := h.rooms[sessionID]
	if room == nil {
		room = make(map[*Client]struct{})
		h.rooms[sessionID] = room
	}
	room[c] = struct{}{}
	c.sessionID = sessionID

	h.broadcastLocked(sessionID, NewEvent(EventTeamJoined, sessionID, PresencePayload{
		ClientID: c.ID,
		UserID:   c.Identity.UserID,
		Role:     c.Identity.Role,
	}), c)
}

// Leave unsubscribes a client from its session's room, tearing the room
// down when it empties, and notifies the remaining members.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c)
}

func (h *Hub) leaveLocked(c *Client) {
	sessionID := c.sessionID
	if sessionID == "" {
		return
	}
	c.sessionID = ""

	room := h.rooms[sessionID]
	if room == nil {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
		return
	}

	h.broadcastLocked(sessionID, NewEvent(EventUserLeft, sessionID, PresencePayload{
		ClientID: c.ID,
		UserID:   c.Identity.UserID,
		Role:     c.Identity.Role,
	}), nil)
}

// Broadcast sends an event to every connected member of a session.
func (h *Hub) Broadcast(sessionID string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(sessionID, ev, nil)
}

// broadcastLocked delivers an event to the room, skipping exclude. A
// client whose send buffer is full is treated as disconnected: it is
// removed from the room and closed, and the broadcast continues to the
// remaining members.
func (h *Hub) broadcastLocked(sessionID string, ev Event, exclude *Client) {
	room := h.rooms[sessionID]
	if len(room) == 0 {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshaling event", "type", ev.Type, "error", err)
		return
	}

	var dead []*Client
	for c := range room {
		if c == exclude {
			continue
		}
		if !c.trySend(data) {
			dead = append(dead, c)
		}
	}

	for _, c := range dead {
		h.logger.Warn("client send buffer full, disconnecting",
			"clientId", c.ID, "sessionId", sessionID)
		delete(room, c)
		c.sessionID = ""
		go c.Close()
	}
	if len(room) == 0 {
		delete(h.rooms, sessionID)
		return
	}

	// An eviction is an implicit leave, so the survivors get the same
	// presence event a voluntary leave sends.
	for _, c := range dead {
		h.broadcastLocked(sessionID, NewEvent(EventUserLeft, sessionID, PresencePayload{
			ClientID: c.ID,
			UserID:   c.Identity.UserID,
			Role:     c.Identity.Role,
		}), nil)
	}
}

// SessionOf returns the session a client is currently subscribed to.
func (h *Hub) SessionOf(c *Client) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return c.sessionID
}

// RoomSize returns the current member count for a session.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[sessionID])
}
