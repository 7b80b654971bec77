package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/geosleuth/geocase/internal/game"
)

// CaseRequest is the request body for creating a case.
type CaseRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Rounds      []game.Round `json:"rounds"`
}

func handleListCases(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cases, err := store.ListCases(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cases": cases})
	}
}

func handleCreateCase(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CaseRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		c := &game.Case{
			ID:          uuid.NewString(),
			Title:       req.Title,
			Description: req.Description,
			Rounds:      req.Rounds,
			CreatedAt:   time.Now().UTC(),
		}
		if err := c.Validate(); err != nil {
			writeDomainError(w, err)
			return
		}
		if err := store.CreateCase(r.Context(), c); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func handleGetCase(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := store.GetCase(r.Context(), chi.URLParam(r, "caseID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func handleDeleteCase(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "caseID")

		inUse, err := store.CaseHasSessions(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if inUse {
			writeError(w, http.StatusConflict, "case has sessions")
			return
		}

		if err := store.DeleteCase(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
