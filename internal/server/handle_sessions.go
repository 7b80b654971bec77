package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/geosleuth/geocase/internal/game"
)

// CreateSessionRequest is the request body for POST /api/sessions.
type CreateSessionRequest struct {
	CaseID   string         `json:"caseId"`
	Settings *game.Settings `json:"settings"`
}

// SessionResponse wraps a session for command responses.
type SessionResponse struct {
	Session *game.Session `json:"session"`
}

func handleCreateSession(svc *GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CaseID == "" {
			writeError(w, http.StatusBadRequest, "caseId is required")
			return
		}

		sess, err := svc.CreateSession(r.Context(), consoleFrom(r).UserID, req.CaseID, req.Settings)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, SessionResponse{Session: sess})
	}
}

func handleListSessions(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := store.ListSessions(r.Context(), consoleFrom(r).UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	}
}

// sessionCommand adapts a GameService lifecycle method into a handler.
func sessionCommand(fn func(r *http.Request, sessionID string) (*game.Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := fn(r, chi.URLParam(r, "sessionID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{Session: sess})
	}
}

func handleStartSession(svc *GameService) http.HandlerFunc {
	return sessionCommand(func(r *http.Request, id string) (*game.Session, error) {
		return svc.Start(r.Context(), consoleFrom(r).UserID, id)
	})
}

func handlePauseSession(svc *GameService) http.HandlerFunc {
	return sessionCommand(func(r *http.Request, id string) (*game.Session, error) {
		return svc.Pause(r.Context(), consoleFrom(r).UserID, id)
	})
}

func handleResumeSession(svc *GameService) http.HandlerFunc {
	return sessionCommand(func(r *http.Request, id string) (*game.Session, error) {
		return svc.Resume(r.Context(), consoleFrom(r).UserID, id)
	})
}

func handleCompleteSession(svc *GameService) http.HandlerFunc {
	return sessionCommand(func(r *http.Request, id string) (*game.Session, error) {
		return svc.Complete(r.Context(), consoleFrom(r).UserID, id)
	})
}

// AdvanceRoundRequest is the request body for POST .../rounds/advance.
type AdvanceRoundRequest struct {
	Force bool `json:"force"`
}

func handleAdvanceRound(svc *GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdvanceRoundRequest
		if r.ContentLength > 0 {
			if err := readJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		sess, err := svc.AdvanceRound(r.Context(), consoleFrom(r).UserID, chi.URLParam(r, "sessionID"), req.Force)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{Session: sess})
	}
}

func handleSessionState(svc *GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := svc.Snapshot(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleScoreboard(svc *GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board, err := svc.Scoreboard(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"scoreboard": board})
	}
}
