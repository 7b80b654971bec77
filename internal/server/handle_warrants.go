package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func handleSubmitWarrant(svc *GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team := teamFrom(r)
		if team.SessionID != chi.URLParam(r, "sessionID") {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		var req WarrantRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.SubmitWarrant(r.Context(), team, req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

func handleScoreHistory(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team := teamFrom(r)
		if team.SessionID != chi.URLParam(r, "sessionID") {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		events, err := store.ListScoreEvents(r.Context(), team.SessionID, team.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events})
	}
}
