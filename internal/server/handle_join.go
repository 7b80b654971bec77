package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/geosleuth/geocase/internal/game"
)

// JoinRequest is the request body for POST /api/sessions/{sessionID}/join.
type JoinRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// JoinResponse returns the new team and its bearer token. The token is
// shown exactly once; clients keep it for API calls and the websocket.
type JoinResponse struct {
	Team  *game.Team `json:"team"`
	Token string     `json:"token"`
}

func handleJoinSession(svc *GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		team, token, err := svc.JoinSession(r.Context(), chi.URLParam(r, "sessionID"), req.Name, req.Color)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, JoinResponse{Team: team, Token: token})
	}
}

func handleLeaveSession(svc *GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team := teamFrom(r)
		if team.SessionID != chi.URLParam(r, "sessionID") {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		if err := svc.LeaveSession(r.Context(), team); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
	}
}
