package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// fakeConn satisfies wsConn for tests that drive the hub directly,
// without pumps or a network.
type fakeConn struct {
	closed atomic.Bool
}

func (f *fakeConn) ReadMessage() (int, []byte, error) { select {} }
func (f *fakeConn) WriteMessage(int, []byte) error    { return nil }
func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) Close() error                      { f.closed.Store(true); return nil }

type allowAllSessions struct{}

func (allowAllSessions) SessionExists(context.Context, string) (bool, error) { return true, nil }

func testHub(t *testing.T) *Hub {
	t.Helper()
	return NewHub(slog.Default(), Options{SendBuffer: 8})
}

func testClient(t *testing.T, h *Hub, userID, role string) *Client {
	t.Helper()
	return newClient(h, &fakeConn{}, Identity{UserID: userID, Role: role}, allowAllSessions{}, slog.Default())
}

// drainEvent pops one queued event off a client's send buffer.
func drainEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshaling event: %v", err)
		}
		return ev
	default:
		t.Fatal("no event queued")
		return Event{}
	}
}

func TestJoinNotifiesExistingMembers(t *testing.T) {
	h := testHub(t)
	a := testClient(t, h, "team-a", "team")
	b := testClient(t, h, "team-b", "team")

	h.Join(a, "s1")
	h.Join(b, "s1")

	ev := drainEvent(t, a)
	if ev.Type != EventTeamJoined {
		t.Errorf("expected team_joined, got %q", ev.Type)
	}
	if ev.SessionID != "s1" {
		t.Errorf("expected session s1, got %q", ev.SessionID)
	}
	if ev.Timestamp.IsZero() {
		t.Error("expected a server-assigned timestamp")
	}

	// The joiner itself is not notified.
	select {
	case data := <-b.send:
		t.Errorf("joiner should not receive its own join event: %s", data)
	default:
	}
}

func TestJoinImplicitlyLeavesPreviousSession(t *testing.T) {
	h := testHub(t)
	a := testClient(t, h, "team-a", "team")

	h.Join(a, "s1")
	if h.RoomSize("s1") != 1 {
		t.Fatalf("expected s1 size 1, got %d", h.RoomSize("s1"))
	}

	h.Join(a, "s2")
	if h.RoomSize("s1") != 0 {
		t.Errorf("expected s1 torn down, got size %d", h.RoomSize("s1"))
	}
	if h.RoomSize("s2") != 1 {
		t.Errorf("expected s2 size 1, got %d", h.RoomSize("s2"))
	}
	if h.SessionOf(a) != "s2" {
		t.Errorf("expected subscription s2, got %q", h.SessionOf(a))
	}
}

func TestLeaveNotifiesRemainingMembers(t *testing.T) {
	h := testHub(t)
	a := testClient(t, h, "team-a", "team")
	b := testClient(t, h, "team-b", "team")

	h.Join(a, "s1")
	h.Join(b, "s1")
	drainEvent(t, a) // b's join

	h.Leave(b)

	ev := drainEvent(t, a)
	if ev.Type != EventUserLeft {
		t.Errorf("expected user_left, got %q", ev.Type)
	}
	var p PresencePayload
	raw, _ := json.Marshal(ev.Payload)
	json.Unmarshal(raw, &p)
	if p.UserID != "team-b" {
		t.Errorf("expected payload for team-b, got %+v", p)
	}

	if h.RoomSize("s1") != 1 {
		t.Errorf("expected room size 1, got %d", h.RoomSize("s1"))
	}
}

func TestBroadcastSurvivesDeadClient(t *testing.T) {
	h := testHub(t)

	dead := testClient(t, h, "team-dead", "team")
	members := []*Client{
		testClient(t, h, "team-1", "team"),
		testClient(t, h, "team-2", "team"),
		testClient(t, h, "team-3", "team"),
	}

	h.Join(dead, "s1")
	for _, c := range members {
		h.Join(c, "s1")
	}
	// Drop the join chatter.
	for _, c := range append(members, dead) {
		for len(c.send) > 0 {
			<-c.send
		}
	}

	// Saturate the dead client's buffer so the next send fails.
	for dead.trySend([]byte("x")) {
	}

	h.Broadcast("s1", NewEvent(EventClueRevealed, "s1", nil))

	// The other three members still receive the event.
	for i, c := range members {
		ev := drainEvent(t, c)
		if ev.Type != EventClueRevealed {
			t.Errorf("member %d: expected clue_revealed, got %q", i, ev.Type)
		}
	}

	// The eviction is an implicit leave: survivors are told the member
	// is gone, same as a voluntary leave.
	for i, c := range members {
		ev := drainEvent(t, c)
		if ev.Type != EventUserLeft {
			t.Errorf("member %d: expected user_left after eviction, got %q", i, ev.Type)
			continue
		}
		var p PresencePayload
		raw, _ := json.Marshal(ev.Payload)
		json.Unmarshal(raw, &p)
		if p.UserID != "team-dead" {
			t.Errorf("member %d: expected user_left for team-dead, got %+v", i, p)
		}
	}

	// The dead client is removed from membership without aborting the
	// broadcast, and its connection is closed.
	if h.RoomSize("s1") != 3 {
		t.Errorf("expected room size 3, got %d", h.RoomSize("s1"))
	}
	fc := dead.conn.(*fakeConn)
	deadline := time.After(2 * time.Second)
	for !fc.closed.Load() {
		select {
		case <-deadline:
			t.Fatal("dead client connection never closed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestBroadcastToEmptyRoom(t *testing.T) {
	h := testHub(t)
	// Must not panic or create a room.
	h.Broadcast("nope", NewEvent(EventGameStateUpdate, "nope", nil))
	if h.RoomSize("nope") != 0 {
		t.Error("broadcast to unknown session should not create a room")
	}
}

func TestHandleMessagePingAndUnknown(t *testing.T) {
	h := testHub(t)
	c := testClient(t, h, "team-a", "team")

	c.handleMessage(context.Background(), []byte(`{"type":"ping"}`))
	if ev := drainEvent(t, c); ev.Type != EventPong {
		t.Errorf("expected pong, got %q", ev.Type)
	}

	c.handleMessage(context.Background(), []byte(`{"type":"teleport"}`))
	if ev := drainEvent(t, c); ev.Type != EventError {
		t.Errorf("expected error event, got %q", ev.Type)
	}

	c.handleMessage(context.Background(), []byte(`not json`))
	if ev := drainEvent(t, c); ev.Type != EventError {
		t.Errorf("expected error event for malformed message, got %q", ev.Type)
	}
}

func TestHandleJoinUnknownSession(t *testing.T) {
	h := testHub(t)
	c := newClient(h, &fakeConn{}, Identity{UserID: "u", Role: "team"}, knownSessions{"real": true}, slog.Default())

	c.handleMessage(context.Background(), []byte(`{"type":"join_session","sessionId":"ghost"}`))
	ev := drainEvent(t, c)
	if ev.Type != EventError {
		t.Fatalf("expected error event, got %q", ev.Type)
	}
	if h.RoomSize("ghost") != 0 {
		t.Error("unknown session must not gain members")
	}

	c.handleMessage(context.Background(), []byte(`{"type":"join_session","sessionId":"real"}`))
	if h.RoomSize("real") != 1 {
		t.Error("expected join to known session to succeed")
	}
}

type knownSessions map[string]bool

func (k knownSessions) SessionExists(_ context.Context, id string) (bool, error) {
	return k[id], nil
}
