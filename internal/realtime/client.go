package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const maxMessageSize = 4096

// wsConn is the subset of *websocket.Conn the client uses; tests substitute
// a pipe-backed fake.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Client is one connected websocket peer. It is transport-scoped: created
// at handshake, destroyed on disconnect, never persisted.
type Client struct {
	ID       string
	Identity Identity

	hub      *Hub
	sessions SessionChecker
	conn     wsConn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	logger   *slog.Logger

	// sessionID is the current room subscription, guarded by hub.mu.
	sessionID string
}

func newClient(hub *Hub, conn wsConn, identity Identity, sessions SessionChecker, logger *slog.Logger) *Client {
	return &Client{
		ID:       uuid.NewString(),
		Identity: identity,
		hub:      hub,
		sessions: sessions,
		conn:     conn,
		send:     make(chan []byte, hub.opts.SendBuffer),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// trySend enqueues data without blocking. A false return means the buffer
// is full and the client should be treated as disconnected.
func (c *Client) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) sendEvent(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("marshaling event", "type", ev.Type, "error", err)
		return
	}
	c.trySend(data)
}

func (c *Client) sendError(code, message string) {
	c.sendEvent(NewEvent(EventError, "", ErrorPayload{Code: code, Message: message}))
}

// Close shuts the connection down. Safe to call multiple times.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// run starts the write pump and reads until the connection drops, then
// leaves the room and cleans up.
func (c *Client) run(ctx context.Context) {
	go c.writePump()
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Leave(c)
		c.Close()
	}()

	pongWait := c.hub.opts.PongWait
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read ended", "clientId", c.ID, "error", err)
			}
			return
		}
		// Any inbound traffic counts as liveness.
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleMessage(ctx, message)
	}
}

func (c *Client) writePump() {
	writeWait := c.hub.opts.WriteWait
	pingPeriod := c.hub.opts.PongWait * 9 / 10

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches one inbound message. Malformed or unknown
// messages produce an error event for this client only; they never
// propagate to other members or crash the connection.
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "invalid message format")
		return
	}

	switch msg.Type {
	case MsgPing:
		c.sendEvent(NewEvent(EventPong, c.hub.SessionOf(c), nil))
	case MsgJoinSession:
		c.handleJoin(ctx, msg.SessionID)
	case MsgLeaveSession:
		c.hub.Leave(c)
	default:
		c.sendError(ErrCodeInvalidMessage, "unknown message type")
	}
}

func (c *Client) handleJoin(ctx context.Context, sessionID string) {
	if sessionID == "" {
		c.sendError(ErrCodeInvalidMessage, "sessionId is required")
		return
	}

	ok, err := c.sessions.SessionExists(ctx, sessionID)
	if err != nil {
		c.logger.Error("checking session", "sessionId", sessionID, "error", err)
		c.sendError(ErrCodeInternalError, "internal error")
		return
	}
	if !ok {
		c.sendError(ErrCodeSessionNotFound, "session not found")
		return
	}

	c.hub.Join(c, sessionID)
}
