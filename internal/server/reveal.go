package server

import (
	"context"
	"fmt"
	"time"

	"github.com/geosleuth/geocase/internal/game"
	"github.com/geosleuth/geocase/internal/realtime"
)

// enterRound prepares the round the session just moved into: it validates
// the round has clues and wipes any stale reveal log left behind by a
// reset or replay. Caller holds the session lock.
func (g *GameService) enterRound(ctx context.Context, sess *game.Session, kase *game.Case) error {
	r, err := kase.Round(sess.CurrentRound)
	if err != nil {
		return err
	}
	if len(r.Clues) == 0 {
		return game.ErrNotFound
	}
	return g.store.ClearRound(ctx, sess.ID, sess.CurrentRound)
}

// revealState derives the current round's reveal view from the log.
func (g *GameService) revealState(ctx context.Context, sess *game.Session, kase *game.Case) (game.RevealState, error) {
	r, err := kase.Round(sess.CurrentRound)
	if err != nil {
		return game.RevealState{}, err
	}
	records, err := g.store.ListReveals(ctx, sess.ID, sess.CurrentRound)
	if err != nil {
		return game.RevealState{}, err
	}
	return game.DeriveRevealState(r, records), nil
}

// RevealNext discloses the next clue of the current round. When every clue
// is already out, it is a no-op that returns the complete state unchanged.
func (g *GameService) RevealNext(ctx context.Context, teacherID, sessionID string) (*game.Clue, game.RevealState, error) {
	ls, err := g.registry.Get(ctx, sessionID)
	if err != nil {
		return nil, game.RevealState{}, err
	}
	ls.Lock()
	defer ls.Unlock()

	sess, err := g.loadOwned(ctx, sessionID, teacherID)
	if err != nil {
		return nil, game.RevealState{}, err
	}
	if sess.Status != game.StatusActive {
		return nil, game.RevealState{}, &game.InvalidStateError{Command: "reveal_clue", Status: sess.Status}
	}
	return g.revealNext(ctx, sess, ls.Case())
}

// revealNext performs one reveal step. Caller holds the session lock.
func (g *GameService) revealNext(ctx context.Context, sess *game.Session, kase *game.Case) (*game.Clue, game.RevealState, error) {
	r, err := kase.Round(sess.CurrentRound)
	if err != nil {
		return nil, game.RevealState{}, err
	}
	records, err := g.store.ListReveals(ctx, sess.ID, sess.CurrentRound)
	if err != nil {
		return nil, game.RevealState{}, err
	}
	st := game.DeriveRevealState(r, records)
	if st.Complete {
		return nil, st, nil
	}

	clue := r.Clues[st.NextIndex]
	now := time.Now().UTC()
	rec := game.RevealRecord{ClueID: clue.ID, Order: st.NextIndex + 1, RevealedAt: now}
	if err := g.store.InsertReveal(ctx, sess.ID, sess.CurrentRound, rec); err != nil {
		return nil, st, err
	}

	// Ledger entry for the audit trail; reveals never change scores.
	ev := game.ScoreEvent{
		SessionID:   sess.ID,
		Round:       sess.CurrentRound,
		Type:        game.EventClueRevealed,
		Points:      0,
		Description: fmt.Sprintf("clue %s revealed (%d/%d)", clue.ID, st.NextIndex+1, st.TotalClues),
		Metadata:    map[string]any{"clueId": clue.ID, "order": st.NextIndex + 1},
		CreatedAt:   now,
	}
	if err := g.store.AppendScoreEvent(ctx, &ev); err != nil {
		return nil, st, err
	}

	st = game.DeriveRevealState(r, append(records, rec))
	g.events.Broadcast(sess.ID, realtime.NewEvent(realtime.EventClueRevealed, sess.ID, map[string]any{
		"clue":   clue,
		"reveal": st,
	}))
	g.logger.Info("clue revealed", "session_id", sess.ID, "round", sess.CurrentRound, "clue_id", clue.ID)
	return &clue, st, nil
}

// RevealAll discloses every remaining clue of the current round, one step
// at a time so each reveal gets its own log row, ledger entry, and event.
func (g *GameService) RevealAll(ctx context.Context, teacherID, sessionID string) (game.RevealState, error) {
	ls, err := g.registry.Get(ctx, sessionID)
	if err != nil {
		return game.RevealState{}, err
	}
	ls.Lock()
	defer ls.Unlock()

	sess, err := g.loadOwned(ctx, sessionID, teacherID)
	if err != nil {
		return game.RevealState{}, err
	}
	if sess.Status != game.StatusActive {
		return game.RevealState{}, &game.InvalidStateError{Command: "reveal_all", Status: sess.Status}
	}

	st, err := g.revealState(ctx, sess, ls.Case())
	if err != nil {
		return game.RevealState{}, err
	}
	for !st.Complete {
		before := st.NextIndex
		_, next, err := g.revealNext(ctx, sess, ls.Case())
		if err != nil {
			return st, err
		}
		if next.NextIndex <= before {
			// Guard against a wedged loop if a step stops advancing.
			return st, fmt.Errorf("round %d at index %d: %w", sess.CurrentRound, before, game.ErrRevealStalled)
		}
		st = next
	}
	return st, nil
}

// ResetReveals wipes the current round's reveal log so the round can be
// replayed. Warrant and scoring entries are untouched.
func (g *GameService) ResetReveals(ctx context.Context, teacherID, sessionID string) (game.RevealState, error) {
	ls, err := g.registry.Get(ctx, sessionID)
	if err != nil {
		return game.RevealState{}, err
	}
	ls.Lock()
	defer ls.Unlock()

	sess, err := g.loadOwned(ctx, sessionID, teacherID)
	if err != nil {
		return game.RevealState{}, err
	}
	if sess.Status.Terminal() {
		return game.RevealState{}, &game.InvalidStateError{Command: "reset_clues", Status: sess.Status}
	}

	if err := g.store.ClearRound(ctx, sess.ID, sess.CurrentRound); err != nil {
		return game.RevealState{}, err
	}
	st, err := g.revealState(ctx, sess, ls.Case())
	if err != nil {
		return game.RevealState{}, err
	}

	g.broadcastState(ctx, sess, ls.Case())
	g.logger.Info("reveals reset", "session_id", sessionID, "round", sess.CurrentRound)
	return st, nil
}
