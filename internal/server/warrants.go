package server

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/geosleuth/geocase/internal/game"
)

// WarrantRequest is a team's guess submission for the current round.
type WarrantRequest struct {
	LocationID     string           `json:"locationId"`
	Location       *game.Coordinate `json:"location"`
	SuspectID      string           `json:"suspectId"`
	Justifications []string         `json:"justifications"`
	Confidence     int              `json:"confidence"`
}

// WarrantResult is the scored outcome returned to the submitting team.
type WarrantResult struct {
	Warrant       *game.Warrant `json:"warrant"`
	PointsAwarded int           `json:"pointsAwarded"`
	TimeBonus     int           `json:"timeBonus,omitempty"`
}

func (req *WarrantRequest) validate() error {
	if strings.TrimSpace(req.LocationID) == "" && req.Location == nil {
		return &game.ValidationError{Reason: "a location is required"}
	}
	if strings.TrimSpace(req.SuspectID) == "" {
		return &game.ValidationError{Reason: "a suspect is required"}
	}
	if req.Confidence == 0 {
		req.Confidence = 3
	}
	if req.Confidence < 1 || req.Confidence > 5 {
		return &game.ValidationError{Reason: "confidence must be between 1 and 5"}
	}
	return nil
}

// SubmitWarrant evaluates a team's guess against the current round and
// writes the warrant plus its ledger entries atomically. One scored
// warrant per team per round; a concurrent duplicate loses on the unique
// index inside the store transaction.
func (g *GameService) SubmitWarrant(ctx context.Context, team teamSession, req WarrantRequest) (*WarrantResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if !team.Active {
		return nil, game.ErrForbidden
	}

	ls, err := g.registry.Get(ctx, team.SessionID)
	if err != nil {
		return nil, err
	}
	ls.Lock()
	defer ls.Unlock()

	sess, err := g.store.GetSession(ctx, team.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != game.StatusActive {
		return nil, &game.InvalidStateError{Command: "submit_warrant", Status: sess.Status}
	}

	exists, err := g.store.HasWarrant(ctx, sess.ID, team.TeamID, sess.CurrentRound)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, game.ErrDuplicateWarrant
	}

	r, err := ls.Case().Round(sess.CurrentRound)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res := sess.Settings.Scorer().Score(r, game.Guess{
		LocationID: req.LocationID,
		Location:   req.Location,
		SuspectID:  req.SuspectID,
	})

	points := int(math.Round(float64(res.Points) * sess.Settings.Multiplier(sess.CurrentRound)))
	if !res.LocationCorrect && !res.SuspectCorrect {
		points -= sess.Settings.WrongGuessPenalty
	}

	bonus := 0
	if res.LocationCorrect && res.SuspectCorrect &&
		sess.Settings.TimeBonusPoints > 0 && sess.Settings.RoundMinutes > 0 {
		if left := sess.RemainingTime(now); left != nil && *left*2 > sess.Settings.RoundMinutes*60 {
			bonus = sess.Settings.TimeBonusPoints
		}
	}

	w := &game.Warrant{
		ID:              uuid.NewString(),
		SessionID:       sess.ID,
		TeamID:          team.TeamID,
		Round:           sess.CurrentRound,
		LocationID:      strings.TrimSpace(req.LocationID),
		Location:        req.Location,
		SuspectID:       strings.TrimSpace(req.SuspectID),
		Justifications:  len(req.Justifications),
		Confidence:      req.Confidence,
		LocationCorrect: res.LocationCorrect,
		SuspectCorrect:  res.SuspectCorrect,
		Points:          points,
		SubmittedAt:     now,
	}

	evType := game.EventIncorrectGuess
	if res.LocationCorrect || res.SuspectCorrect {
		evType = game.EventCorrectGuess
	}
	events := []game.ScoreEvent{{
		SessionID:   sess.ID,
		TeamID:      team.TeamID,
		Round:       sess.CurrentRound,
		Type:        evType,
		Points:      points,
		Description: fmt.Sprintf("warrant: location %t, suspect %t", res.LocationCorrect, res.SuspectCorrect),
		Metadata: map[string]any{
			"warrantId":  w.ID,
			"confidence": w.Confidence,
		},
		CreatedAt: now,
	}}
	if bonus > 0 {
		events = append(events, game.ScoreEvent{
			SessionID:   sess.ID,
			TeamID:      team.TeamID,
			Round:       sess.CurrentRound,
			Type:        game.EventTimeBonus,
			Points:      bonus,
			Description: "fast correct warrant",
			Metadata:    map[string]any{"warrantId": w.ID},
			CreatedAt:   now,
		})
	}

	if err := g.store.InsertWarrant(ctx, w, events); err != nil {
		return nil, err
	}

	g.broadcastState(ctx, sess, ls.Case())
	g.logger.Info("warrant scored",
		"session_id", sess.ID,
		"team_id", team.TeamID,
		"round", sess.CurrentRound,
		"location_correct", res.LocationCorrect,
		"suspect_correct", res.SuspectCorrect,
		"points", points+bonus,
	)
	return &WarrantResult{Warrant: w, PointsAwarded: points + bonus, TimeBonus: bonus}, nil
}
