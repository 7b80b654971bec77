package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geosleuth/geocase/internal/game"
	"github.com/geosleuth/geocase/internal/realtime"
)

// timeFormat matches the strftime default used in the schema.
const timeFormat = "2006-01-02T15:04:05.000Z"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Cases.

func (s *SQLiteStore) CreateCase(ctx context.Context, c *game.Case) error {
	rounds, err := json.Marshal(c.Rounds)
	if err != nil {
		return fmt.Errorf("encoding rounds: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cases (id, title, description, rounds, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.Title, c.Description, string(rounds), fmtTime(c.CreatedAt))
	return err
}

func (s *SQLiteStore) GetCase(ctx context.Context, id string) (*game.Case, error) {
	var c game.Case
	var rounds, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, rounds, created_at FROM cases WHERE id = ?
	`, id).Scan(&c.ID, &c.Title, &c.Description, &rounds, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rounds), &c.Rounds); err != nil {
		return nil, fmt.Errorf("decoding rounds for case %s: %w", id, err)
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func (s *SQLiteStore) ListCases(ctx context.Context) ([]CaseSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, json_array_length(rounds), created_at
		FROM cases ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CaseSummary{}
	for rows.Next() {
		var cs CaseSummary
		var createdAt string
		if err := rows.Scan(&cs.ID, &cs.Title, &cs.Description, &cs.RoundCount, &createdAt); err != nil {
			return nil, err
		}
		cs.CreatedAt = parseTime(createdAt)
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteCase(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cases WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return game.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CaseHasSessions(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sessions WHERE case_id = ?
	`, id).Scan(&count)
	return count > 0, err
}

// Sessions.

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *game.Session) error {
	settings, err := json.Marshal(sess.Settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, case_id, teacher_id, status, current_round, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.CaseID, sess.TeacherID, string(sess.Status), sess.CurrentRound,
		string(settings), fmtTime(sess.CreatedAt), fmtTime(sess.UpdatedAt))
	return err
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*game.Session, error) {
	var sess game.Session
	var status, settings, createdAt, updatedAt string
	var roundStartedAt sql.NullString
	var remaining sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, case_id, teacher_id, status, current_round, settings,
		       round_started_at, remaining_seconds, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.CaseID, &sess.TeacherID, &status, &sess.CurrentRound,
		&settings, &roundStartedAt, &remaining, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.Status = game.SessionStatus(status)
	if err := json.Unmarshal([]byte(settings), &sess.Settings); err != nil {
		return nil, fmt.Errorf("decoding settings for session %s: %w", id, err)
	}
	if roundStartedAt.Valid {
		t := parseTime(roundStartedAt.String)
		sess.RoundStartedAt = &t
	}
	if remaining.Valid {
		n := int(remaining.Int64)
		sess.RemainingSeconds = &n
	}
	sess.CreatedAt = parseTime(createdAt)
	sess.UpdatedAt = parseTime(updatedAt)
	return &sess, nil
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, sess *game.Session) error {
	settings, err := json.Marshal(sess.Settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	var roundStartedAt any
	if sess.RoundStartedAt != nil {
		roundStartedAt = fmtTime(*sess.RoundStartedAt)
	}
	var remaining any
	if sess.RemainingSeconds != nil {
		remaining = *sess.RemainingSeconds
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, current_round = ?, settings = ?,
		    round_started_at = ?, remaining_seconds = ?, updated_at = ?
		WHERE id = ?
	`, string(sess.Status), sess.CurrentRound, string(settings),
		roundStartedAt, remaining, fmtTime(sess.UpdatedAt), sess.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return game.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SessionExists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, id).Scan(&count)
	return count > 0, err
}

func (s *SQLiteStore) ListSessions(ctx context.Context, teacherID string) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.case_id, c.title, s.status, s.current_round,
		       (SELECT COUNT(*) FROM teams t WHERE t.session_id = s.id AND t.active = 1),
		       s.created_at
		FROM sessions s
		JOIN cases c ON c.id = s.case_id
		WHERE s.teacher_id = ?
		ORDER BY s.created_at DESC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SessionSummary{}
	for rows.Next() {
		var ss SessionSummary
		var status, createdAt string
		if err := rows.Scan(&ss.ID, &ss.CaseID, &ss.CaseTitle, &status, &ss.CurrentRound, &ss.TeamCount, &createdAt); err != nil {
			return nil, err
		}
		ss.Status = game.SessionStatus(status)
		ss.CreatedAt = parseTime(createdAt)
		out = append(out, ss)
	}
	return out, rows.Err()
}

// Teams.

func (s *SQLiteStore) CreateTeam(ctx context.Context, t *game.Team) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO teams (id, session_id, name, color, join_order, active, joined_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
		RETURNING token
	`, t.ID, t.SessionID, t.Name, t.Color, t.JoinOrder, fmtTime(t.JoinedAt)).Scan(&token)
	return token, err
}

func (s *SQLiteStore) GetTeam(ctx context.Context, teamID string) (*game.Team, error) {
	var t game.Team
	var active int
	var joinedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, name, color, join_order, active, joined_at
		FROM teams WHERE id = ?
	`, teamID).Scan(&t.ID, &t.SessionID, &t.Name, &t.Color, &t.JoinOrder, &active, &joinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Active = active == 1
	t.JoinedAt = parseTime(joinedAt)
	return &t, nil
}

func (s *SQLiteStore) ListTeams(ctx context.Context, sessionID string) ([]game.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, name, color, join_order, active, joined_at
		FROM teams WHERE session_id = ? ORDER BY join_order
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []game.Team{}
	for rows.Next() {
		var t game.Team
		var active int
		var joinedAt string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Name, &t.Color, &t.JoinOrder, &active, &joinedAt); err != nil {
			return nil, err
		}
		t.Active = active == 1
		t.JoinedAt = parseTime(joinedAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeactivateTeam(ctx context.Context, teamID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE teams SET active = 0 WHERE id = ?`, teamID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return game.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CountActiveTeams(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM teams WHERE session_id = ? AND active = 1
	`, sessionID).Scan(&count)
	return count, err
}

func (s *SQLiteStore) TeamFromToken(ctx context.Context, token string) (teamSession, error) {
	var sess teamSession
	var active int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, active FROM teams WHERE token = ?
	`, token).Scan(&sess.TeamID, &sess.SessionID, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, errNoSession
	}
	sess.Active = active == 1
	return sess, err
}

// Clue reveal log.

func (s *SQLiteStore) ListReveals(ctx context.Context, sessionID string, round int) ([]game.RevealRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT clue_id, reveal_order, revealed_at
		FROM clue_reveals
		WHERE session_id = ? AND round = ?
		ORDER BY reveal_order
	`, sessionID, round)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []game.RevealRecord{}
	for rows.Next() {
		var rec game.RevealRecord
		var revealedAt string
		if err := rows.Scan(&rec.ClueID, &rec.Order, &revealedAt); err != nil {
			return nil, err
		}
		rec.RevealedAt = parseTime(revealedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertReveal(ctx context.Context, sessionID string, round int, rec game.RevealRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clue_reveals (session_id, round, clue_id, reveal_order, revealed_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, round, rec.ClueID, rec.Order, fmtTime(rec.RevealedAt))
	return err
}

// ClearRound wipes the reveal log and the zero-delta reveal ledger entries
// for one round, so the round can be replayed from a clean slate.
func (s *SQLiteStore) ClearRound(ctx context.Context, sessionID string, round int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM clue_reveals WHERE session_id = ? AND round = ?
	`, sessionID, round); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM score_events
		WHERE session_id = ? AND round = ? AND type = ? AND points = 0
	`, sessionID, round, string(game.EventClueRevealed)); err != nil {
		return err
	}
	return tx.Commit()
}

// Warrants and the score ledger.

func (s *SQLiteStore) HasWarrant(ctx context.Context, sessionID, teamID string, round int) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM warrants
		WHERE session_id = ? AND team_id = ? AND round = ?
	`, sessionID, teamID, round).Scan(&count)
	return count > 0, err
}

// CountRoundWarrants counts active teams that have submitted a warrant for
// the round. Deactivated teams do not hold up round advancement.
func (s *SQLiteStore) CountRoundWarrants(ctx context.Context, sessionID string, round int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM warrants w
		JOIN teams t ON t.id = w.team_id
		WHERE w.session_id = ? AND w.round = ? AND t.active = 1
	`, sessionID, round).Scan(&count)
	return count, err
}

// InsertWarrant records a warrant and its ledger entries in one transaction.
// A concurrent duplicate submission loses the race on the unique index and
// surfaces as ErrDuplicateWarrant.
func (s *SQLiteStore) InsertWarrant(ctx context.Context, w *game.Warrant, events []game.ScoreEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var lat, lng any
	if w.Location != nil {
		lat, lng = w.Location.Lat, w.Location.Lng
	}
	boolInt := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO warrants (id, session_id, team_id, round, location_id, lat, lng,
		                      suspect_id, justifications, confidence,
		                      location_correct, suspect_correct, points, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, w.ID, w.SessionID, w.TeamID, w.Round, w.LocationID, lat, lng,
		w.SuspectID, w.Justifications, w.Confidence,
		boolInt(w.LocationCorrect), boolInt(w.SuspectCorrect), w.Points, fmtTime(w.SubmittedAt))
	if isUniqueViolation(err) {
		return game.ErrDuplicateWarrant
	}
	if err != nil {
		return err
	}

	for i := range events {
		if err := insertScoreEvent(ctx, tx, &events[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertScoreEvent(ctx context.Context, db execer, ev *game.ScoreEvent) error {
	meta := "{}"
	if ev.Metadata != nil {
		b, err := json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		meta = string(b)
	}
	var teamID any
	if ev.TeamID != "" {
		teamID = ev.TeamID
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO score_events (session_id, team_id, round, type, points, description, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.SessionID, teamID, ev.Round, string(ev.Type), ev.Points, ev.Description, meta, fmtTime(ev.CreatedAt))
	return err
}

func (s *SQLiteStore) AppendScoreEvent(ctx context.Context, ev *game.ScoreEvent) error {
	return insertScoreEvent(ctx, s.db, ev)
}

// TeamScores sums the ledger per team. Totals are always derived from the
// ledger, never read from a mutable counter.
func (s *SQLiteStore) TeamScores(ctx context.Context, sessionID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT team_id, COALESCE(SUM(points), 0)
		FROM score_events
		WHERE session_id = ? AND team_id IS NOT NULL
		GROUP BY team_id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := map[string]int{}
	for rows.Next() {
		var teamID string
		var total int
		if err := rows.Scan(&teamID, &total); err != nil {
			return nil, err
		}
		scores[teamID] = total
	}
	return scores, rows.Err()
}

func (s *SQLiteStore) ListScoreEvents(ctx context.Context, sessionID, teamID string) ([]game.ScoreEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, COALESCE(team_id, ''), round, type, points, description, metadata, created_at
		FROM score_events
		WHERE session_id = ? AND (? = '' OR team_id = ?)
		ORDER BY id
	`, sessionID, teamID, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []game.ScoreEvent{}
	for rows.Next() {
		var ev game.ScoreEvent
		var evType, meta, createdAt string
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.TeamID, &ev.Round, &evType,
			&ev.Points, &ev.Description, &meta, &createdAt); err != nil {
			return nil, err
		}
		ev.Type = game.ScoreEventType(evType)
		if meta != "" && meta != "{}" {
			_ = json.Unmarshal([]byte(meta), &ev.Metadata)
		}
		ev.CreatedAt = parseTime(createdAt)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Console auth.

func (s *SQLiteStore) ConsoleUserByEmail(ctx context.Context, email string) (string, string, error) {
	var id, hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM console_users WHERE email = ?
	`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", game.ErrNotFound
	}
	return id, hash, err
}

func (s *SQLiteStore) CreateConsoleUser(ctx context.Context, email, passwordHash string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO console_users (id, email, password_hash)
		VALUES (lower(hex(randomblob(8))), ?, ?)
		RETURNING id
	`, email, passwordHash).Scan(&id)
	return id, err
}

func (s *SQLiteStore) CreateConsoleSession(ctx context.Context, userID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO console_sessions (user_id)
		VALUES (?)
		RETURNING id
	`, userID).Scan(&id)
	return id, err
}

func (s *SQLiteStore) ConsoleFromSession(ctx context.Context, sessionID string) (consoleSession, error) {
	var sess consoleSession
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email
		FROM console_sessions s
		JOIN console_users u ON u.id = s.user_id
		WHERE s.id = ?
	`, sessionID).Scan(&sess.UserID, &sess.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return consoleSession{}, errNoConsoleSession
	}
	return sess, err
}

func (s *SQLiteStore) DeleteConsoleSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM console_sessions WHERE id = ?`, sessionID)
	return err
}

// IdentityFromToken resolves a websocket credential: team bearer tokens
// map to the "team" role, console session ids to "teacher".
func (s *SQLiteStore) IdentityFromToken(ctx context.Context, token string) (realtime.Identity, error) {
	team, err := s.TeamFromToken(ctx, token)
	if err == nil {
		return realtime.Identity{UserID: team.TeamID, Role: "team"}, nil
	}
	if !errors.Is(err, errNoSession) {
		return realtime.Identity{}, err
	}

	console, err := s.ConsoleFromSession(ctx, token)
	if err == nil {
		return realtime.Identity{UserID: console.UserID, Role: "teacher"}, nil
	}
	if !errors.Is(err, errNoConsoleSession) {
		return realtime.Identity{}, err
	}
	return realtime.Identity{}, errNoSession
}
