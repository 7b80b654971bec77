package realtime

import (
	"context"
	"time"
)

// Server → client event types.
const (
	EventGameStateUpdate = "game_state_update"
	EventClueRevealed    = "clue_revealed"
	EventTeamJoined      = "team_joined"
	EventUserLeft        = "user_left"
	EventRoundAdvance    = "round_advance"
	EventGameComplete    = "game_complete"
	EventError           = "error"
	EventPong            = "pong"
)

// Client → server message types.
const (
	MsgJoinSession  = "join_session"
	MsgLeaveSession = "leave_session"
	MsgPing         = "ping"
)

// Event is a server-pushed message. Every event carries a server-assigned
// timestamp and the session it pertains to.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// NewEvent creates an event stamped with the current server time.
func NewEvent(eventType, sessionID string, payload any) Event {
	return Event{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// ClientMessage is the envelope for messages sent by clients.
type ClientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
}

// Identity is the decoded result of credential verification. Issuing and
// decoding credentials is the auth collaborator's concern; the fan-out
// layer only consumes the result.
type Identity struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Verifier authenticates a connection token.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// SessionChecker reports whether a session id refers to a known session.
type SessionChecker interface {
	SessionExists(ctx context.Context, sessionID string) (bool, error)
}

// PresencePayload accompanies team_joined and user_left events.
type PresencePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
	Role     string `json:"role"`
}

// ErrorPayload accompanies error events, sent to the offending client only.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for error events.
const (
	ErrCodeInvalidMessage  = "INVALID_MESSAGE"
	ErrCodeSessionNotFound = "SESSION_NOT_FOUND"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)
