package server

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/geosleuth/geocase/internal/game"
	"github.com/geosleuth/geocase/internal/realtime"
)

// Broadcaster fans an event out to every client subscribed to a session.
// The realtime hub is the production implementation.
type Broadcaster interface {
	Broadcast(sessionID string, ev realtime.Event)
}

// GameService executes session commands. Every mutating command runs
// under the session's registry lock: load state, validate the transition,
// persist, then broadcast, so events reach clients in the order the
// mutations happened.
type GameService struct {
	store    Store
	registry *Registry
	events   Broadcaster
	logger   *slog.Logger
}

func NewGameService(store Store, registry *Registry, events Broadcaster, logger *slog.Logger) *GameService {
	return &GameService{
		store:    store,
		registry: registry,
		events:   events,
		logger:   logger,
	}
}

// SessionView is the client-facing projection of a session.
type SessionView struct {
	ID               string             `json:"id"`
	CaseID           string             `json:"caseId"`
	Status           game.SessionStatus `json:"status"`
	CurrentRound     int                `json:"currentRound"`
	MaxRound         int                `json:"maxRound"`
	Settings         game.Settings      `json:"settings"`
	RemainingSeconds *int               `json:"remainingSeconds,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// TeamScore is a scoreboard row: team identity plus its ledger-derived
// total and whether it has submitted a warrant for the current round.
type TeamScore struct {
	TeamID    string `json:"teamId"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Active    bool   `json:"active"`
	JoinOrder int    `json:"joinOrder"`
	Score     int    `json:"score"`
	Submitted bool   `json:"submitted"`
}

// StateSnapshot is the full reconnect-safe view of a session: everything a
// client needs to render without replaying events.
type StateSnapshot struct {
	Session   SessionView       `json:"session"`
	CaseTitle string            `json:"caseTitle"`
	Reveal    *game.RevealState `json:"reveal,omitempty"`
	Teams     []TeamScore       `json:"teams"`
}

func sessionView(s *game.Session, c *game.Case, now time.Time) SessionView {
	return SessionView{
		ID:               s.ID,
		CaseID:           s.CaseID,
		Status:           s.Status,
		CurrentRound:     s.CurrentRound,
		MaxRound:         s.MaxRound(c),
		Settings:         s.Settings,
		RemainingSeconds: s.RemainingTime(now),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// CreateSession instantiates a session over a stored case. The session
// starts in the waiting lobby at round 1.
func (g *GameService) CreateSession(ctx context.Context, teacherID, caseID string, settings *game.Settings) (*game.Session, error) {
	kase, err := g.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if len(kase.Rounds) == 0 {
		return nil, &game.ValidationError{Reason: "case has no rounds"}
	}

	cfg := game.DefaultSettings()
	if settings != nil {
		cfg = settings.Normalized()
	}

	now := time.Now().UTC()
	sess := &game.Session{
		ID:           uuid.NewString(),
		CaseID:       caseID,
		TeacherID:    teacherID,
		Status:       game.StatusWaiting,
		CurrentRound: 1,
		Settings:     cfg,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := g.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	g.registry.Register(sess.ID, kase)

	g.logger.Info("session created", "session_id", sess.ID, "case_id", caseID, "teacher_id", teacherID)
	return sess, nil
}

// loadOwned fetches the session and checks the caller owns it.
func (g *GameService) loadOwned(ctx context.Context, sessionID, teacherID string) (*game.Session, error) {
	sess, err := g.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.TeacherID != teacherID {
		return nil, game.ErrForbidden
	}
	return sess, nil
}

// Start moves a waiting session into active play, arming round 1.
func (g *GameService) Start(ctx context.Context, teacherID, sessionID string) (*game.Session, error) {
	ls, err := g.registry.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ls.Lock()
	defer ls.Unlock()

	sess, err := g.loadOwned(ctx, sessionID, teacherID)
	if err != nil {
		return nil, err
	}
	if sess.Status != game.StatusWaiting {
		return nil, &game.InvalidStateError{Command: "start", Status: sess.Status}
	}

	now := time.Now().UTC()
	sess.Status = game.StatusActive
	sess.CurrentRound = 1
	sess.StartRoundTimer(now)
	sess.UpdatedAt = now

	if err := g.enterRound(ctx, sess, ls.Case()); err != nil {
		return nil, err
	}
	if err := g.store.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}

	g.broadcastState(ctx, sess, ls.Case())
	g.logger.Info("session started", "session_id", sessionID)
	return sess, nil
}

// Pause freezes an active session, preserving the round timer. Pausing a
// paused session is a no-op.
func (g *GameService) Pause(ctx context.Context, teacherID, sessionID string) (*game.Session, error) {
	ls, err := g.registry.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ls.Lock()
	defer ls.Unlock()

	sess, err := g.loadOwned(ctx, sessionID, teacherID)
	if err != nil {
		return nil, err
	}
	if sess.Status == game.StatusPaused {
		// Likely a client retry; report it but change nothing.
		g.logger.Warn("pause on already-paused session", "session_id", sessionID)
		return sess, nil
	}
	if !sess.Status.CanTransitionTo(game.StatusPaused) {
		return nil, &game.InvalidStateError{Command: "pause", Status: sess.Status}
	}

	now := time.Now().UTC()
	sess.PauseRoundTimer(now)
	sess.Status = game.StatusPaused
	sess.UpdatedAt = now
	if err := g.store.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}

	g.broadcastState(ctx, sess, ls.Case())
	return sess, nil
}

// Resume restarts a paused session against its preserved timer budget.
func (g *GameService) Resume(ctx context.Context, teacherID, sessionID string) (*game.Session, error) {
	ls, err := g.registry.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ls.Lock()
	defer ls.Unlock()

	sess, err := g.loadOwned(ctx, sessionID, teacherID)
	if err != nil {
		return nil, err
	}
	if sess.Status != game.StatusPaused {
		return nil, &game.InvalidStateError{Command: "resume", Status: sess.Status}
	}

	now := time.Now().UTC()
	sess.ResumeRoundTimer(now)
	sess.Status = game.StatusActive
	sess.UpdatedAt = now
	if err := g.store.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}

	g.broadcastState(ctx, sess, ls.Case())
	return sess, nil
}

// Complete ends a session from any non-terminal status and broadcasts the
// final scoreboard.
func (g *GameService) Complete(ctx context.Context, teacherID, sessionID string) (*game.Session, error) {
	ls, err := g.registry.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ls.Lock()
	defer ls.Unlock()

	sess, err := g.loadOwned(ctx, sessionID, teacherID)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, &game.InvalidStateError{Command: "complete", Status: sess.Status}
	}
	if err := g.complete(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// complete performs the terminal transition. Caller holds the session lock.
func (g *GameService) complete(ctx context.Context, sess *game.Session) error {
	now := time.Now().UTC()
	sess.Status = game.StatusCompleted
	sess.RoundStartedAt = nil
	sess.RemainingSeconds = nil
	sess.UpdatedAt = now
	if err := g.store.UpdateSession(ctx, sess); err != nil {
		return err
	}

	board, err := g.scoreboard(ctx, sess)
	if err != nil {
		g.logger.Error("scoreboard for game_complete", "session_id", sess.ID, "error", err)
		board = nil
	}
	g.events.Broadcast(sess.ID, realtime.NewEvent(realtime.EventGameComplete, sess.ID, map[string]any{
		"scoreboard": board,
	}))
	g.registry.Remove(sess.ID)
	g.logger.Info("session completed", "session_id", sess.ID)
	return nil
}

// AdvanceRound moves an active session to the next round, or completes it
// after the final round. Unless forced, it requires every active team to
// have a warrant on record for the current round.
func (g *GameService) AdvanceRound(ctx context.Context, teacherID, sessionID string, force bool) (*game.Session, error) {
	ls, err := g.registry.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ls.Lock()
	defer ls.Unlock()

	sess, err := g.loadOwned(ctx, sessionID, teacherID)
	if err != nil {
		return nil, err
	}
	if sess.Status != game.StatusActive {
		return nil, &game.InvalidStateError{Command: "advance_round", Status: sess.Status}
	}

	if !force {
		teams, err := g.store.CountActiveTeams(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		submitted, err := g.store.CountRoundWarrants(ctx, sessionID, sess.CurrentRound)
		if err != nil {
			return nil, err
		}
		if teams > 0 && submitted < teams {
			return nil, fmt.Errorf("%d of %d teams submitted: %w", submitted, teams, game.ErrRoundNotResolved)
		}
	}

	if sess.CurrentRound >= sess.MaxRound(ls.Case()) {
		if err := g.complete(ctx, sess); err != nil {
			return nil, err
		}
		return sess, nil
	}

	now := time.Now().UTC()
	sess.CurrentRound++
	sess.StartRoundTimer(now)
	sess.UpdatedAt = now
	if err := g.enterRound(ctx, sess, ls.Case()); err != nil {
		return nil, err
	}
	if err := g.store.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}

	st, err := g.revealState(ctx, sess, ls.Case())
	if err != nil {
		return nil, err
	}
	g.events.Broadcast(sess.ID, realtime.NewEvent(realtime.EventRoundAdvance, sess.ID, map[string]any{
		"round":    sess.CurrentRound,
		"maxRound": sess.MaxRound(ls.Case()),
		"reveal":   st,
	}))
	g.logger.Info("round advanced", "session_id", sessionID, "round", sess.CurrentRound)
	return sess, nil
}

// Snapshot assembles the full state view under the session lock, so it is
// consistent with respect to concurrent commands.
func (g *GameService) Snapshot(ctx context.Context, sessionID string) (*StateSnapshot, error) {
	ls, err := g.registry.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ls.Lock()
	defer ls.Unlock()

	sess, err := g.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return g.snapshot(ctx, sess, ls.Case())
}

// snapshot builds the state view. Caller holds the session lock.
func (g *GameService) snapshot(ctx context.Context, sess *game.Session, kase *game.Case) (*StateSnapshot, error) {
	snap := &StateSnapshot{
		Session:   sessionView(sess, kase, time.Now().UTC()),
		CaseTitle: kase.Title,
	}

	if sess.Status != game.StatusWaiting {
		st, err := g.revealState(ctx, sess, kase)
		if err != nil {
			return nil, err
		}
		snap.Reveal = &st
	}

	board, err := g.scoreboard(ctx, sess)
	if err != nil {
		return nil, err
	}
	snap.Teams = board
	return snap, nil
}

// Scoreboard returns the ledger-derived standings, best score first.
func (g *GameService) Scoreboard(ctx context.Context, sessionID string) ([]TeamScore, error) {
	sess, err := g.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return g.scoreboard(ctx, sess)
}

func (g *GameService) scoreboard(ctx context.Context, sess *game.Session) ([]TeamScore, error) {
	teams, err := g.store.ListTeams(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	scores, err := g.store.TeamScores(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	board := make([]TeamScore, 0, len(teams))
	for _, t := range teams {
		submitted, err := g.store.HasWarrant(ctx, sess.ID, t.ID, sess.CurrentRound)
		if err != nil {
			return nil, err
		}
		board = append(board, TeamScore{
			TeamID:    t.ID,
			Name:      t.Name,
			Color:     t.Color,
			Active:    t.Active,
			JoinOrder: t.JoinOrder,
			Score:     scores[t.ID],
			Submitted: submitted,
		})
	}
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].Score != board[j].Score {
			return board[i].Score > board[j].Score
		}
		return board[i].JoinOrder < board[j].JoinOrder
	})
	return board, nil
}

// broadcastState pushes a fresh snapshot to the session's room. Caller
// holds the session lock.
func (g *GameService) broadcastState(ctx context.Context, sess *game.Session, kase *game.Case) {
	snap, err := g.snapshot(ctx, sess, kase)
	if err != nil {
		g.logger.Error("building state snapshot", "session_id", sess.ID, "error", err)
		return
	}
	g.events.Broadcast(sess.ID, realtime.NewEvent(realtime.EventGameStateUpdate, sess.ID, snap))
}
