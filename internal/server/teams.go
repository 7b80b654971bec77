package server

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/geosleuth/geocase/internal/game"
	"github.com/geosleuth/geocase/internal/realtime"
)

// JoinSession registers a team in a session's lobby and issues its bearer
// token. After the lobby closes, late joins are only admitted when the
// session allows them.
func (g *GameService) JoinSession(ctx context.Context, sessionID, name, color string) (*game.Team, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", &game.ValidationError{Reason: "team name is required"}
	}

	ls, err := g.registry.Get(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	ls.Lock()
	defer ls.Unlock()

	sess, err := g.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	if sess.Status.Terminal() {
		return nil, "", &game.InvalidStateError{Command: "join_session", Status: sess.Status}
	}
	if sess.Status != game.StatusWaiting && !sess.Settings.AllowLateJoin {
		return nil, "", &game.InvalidStateError{Command: "join_session", Status: sess.Status}
	}

	existing, err := g.store.ListTeams(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	for _, t := range existing {
		if t.Active && strings.EqualFold(t.Name, name) {
			return nil, "", &game.ValidationError{Reason: "team name already taken"}
		}
	}

	team := &game.Team{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Name:      name,
		Color:     color,
		JoinOrder: len(existing) + 1,
		Active:    true,
		JoinedAt:  time.Now().UTC(),
	}
	token, err := g.store.CreateTeam(ctx, team)
	if err != nil {
		return nil, "", err
	}

	g.events.Broadcast(sessionID, realtime.NewEvent(realtime.EventTeamJoined, sessionID, map[string]any{
		"teamId": team.ID,
		"name":   team.Name,
		"color":  team.Color,
	}))
	g.logger.Info("team joined", "session_id", sessionID, "team_id", team.ID, "name", name)
	return team, token, nil
}

// LeaveSession soft-deactivates a team. Its ledger entries survive, so the
// scoreboard keeps its history; it just stops gating round advancement.
func (g *GameService) LeaveSession(ctx context.Context, team teamSession) error {
	ls, err := g.registry.Get(ctx, team.SessionID)
	if err != nil {
		return err
	}
	ls.Lock()
	defer ls.Unlock()

	if err := g.store.DeactivateTeam(ctx, team.TeamID); err != nil {
		return err
	}

	g.events.Broadcast(team.SessionID, realtime.NewEvent(realtime.EventUserLeft, team.SessionID, map[string]any{
		"teamId": team.TeamID,
	}))
	g.logger.Info("team left", "session_id", team.SessionID, "team_id", team.TeamID)
	return nil
}
