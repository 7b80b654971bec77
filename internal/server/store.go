package server

import (
	"context"
	"time"

	"github.com/geosleuth/geocase/internal/game"
	"github.com/geosleuth/geocase/internal/realtime"
)

// teamSession is the decoded result of a team bearer token.
type teamSession struct {
	TeamID    string
	SessionID string
	Active    bool
}

// consoleSession identifies an authenticated console (teacher) user.
type consoleSession struct {
	UserID string
	Email  string
}

// CaseSummary is a case list entry, without round content.
type CaseSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	RoundCount  int       `json:"roundCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SessionSummary is a session list entry for the console.
type SessionSummary struct {
	ID           string             `json:"id"`
	CaseID       string             `json:"caseId"`
	CaseTitle    string             `json:"caseTitle"`
	Status       game.SessionStatus `json:"status"`
	CurrentRound int                `json:"currentRound"`
	TeamCount    int                `json:"teamCount"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// Store is the persistence boundary. SQLiteStore is the only production
// implementation; the interface exists so service tests and future
// backends can swap it.
type Store interface {
	// Cases.
	CreateCase(ctx context.Context, c *game.Case) error
	GetCase(ctx context.Context, id string) (*game.Case, error)
	ListCases(ctx context.Context) ([]CaseSummary, error)
	DeleteCase(ctx context.Context, id string) error
	CaseHasSessions(ctx context.Context, id string) (bool, error)

	// Sessions.
	CreateSession(ctx context.Context, s *game.Session) error
	GetSession(ctx context.Context, id string) (*game.Session, error)
	UpdateSession(ctx context.Context, s *game.Session) error
	SessionExists(ctx context.Context, id string) (bool, error)
	ListSessions(ctx context.Context, teacherID string) ([]SessionSummary, error)

	// Teams.
	CreateTeam(ctx context.Context, t *game.Team) (token string, err error)
	GetTeam(ctx context.Context, teamID string) (*game.Team, error)
	ListTeams(ctx context.Context, sessionID string) ([]game.Team, error)
	DeactivateTeam(ctx context.Context, teamID string) error
	CountActiveTeams(ctx context.Context, sessionID string) (int, error)
	TeamFromToken(ctx context.Context, token string) (teamSession, error)

	// Clue reveal log.
	ListReveals(ctx context.Context, sessionID string, round int) ([]game.RevealRecord, error)
	InsertReveal(ctx context.Context, sessionID string, round int, rec game.RevealRecord) error
	ClearRound(ctx context.Context, sessionID string, round int) error

	// Warrants and the score ledger.
	HasWarrant(ctx context.Context, sessionID, teamID string, round int) (bool, error)
	CountRoundWarrants(ctx context.Context, sessionID string, round int) (int, error)
	InsertWarrant(ctx context.Context, w *game.Warrant, events []game.ScoreEvent) error
	AppendScoreEvent(ctx context.Context, ev *game.ScoreEvent) error
	TeamScores(ctx context.Context, sessionID string) (map[string]int, error)
	ListScoreEvents(ctx context.Context, sessionID, teamID string) ([]game.ScoreEvent, error)

	// Console auth.
	ConsoleUserByEmail(ctx context.Context, email string) (id, passwordHash string, err error)
	CreateConsoleUser(ctx context.Context, email, passwordHash string) (string, error)
	CreateConsoleSession(ctx context.Context, userID string) (string, error)
	ConsoleFromSession(ctx context.Context, sessionID string) (consoleSession, error)
	DeleteConsoleSession(ctx context.Context, sessionID string) error

	// Realtime credential verification: team tokens and console session ids.
	IdentityFromToken(ctx context.Context, token string) (realtime.Identity, error)
}
