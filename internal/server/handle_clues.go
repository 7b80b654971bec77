package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/geosleuth/geocase/internal/game"
)

// RevealResponse is returned by the clue reveal endpoints. Clue is nil
// when the round was already fully revealed.
type RevealResponse struct {
	Clue   *game.Clue       `json:"clue,omitempty"`
	Reveal game.RevealState `json:"reveal"`
}

func handleRevealClue(svc *GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clue, st, err := svc.RevealNext(r.Context(), consoleFrom(r).UserID, chi.URLParam(r, "sessionID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RevealResponse{Clue: clue, Reveal: st})
	}
}

func handleRevealAll(svc *GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.RevealAll(r.Context(), consoleFrom(r).UserID, chi.URLParam(r, "sessionID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RevealResponse{Reveal: st})
	}
}

func handleResetClues(svc *GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.ResetReveals(r.Context(), consoleFrom(r).UserID, chi.URLParam(r, "sessionID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RevealResponse{Reveal: st})
	}
}
