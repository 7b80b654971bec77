package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/geosleuth/geocase/internal/game"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
// Anything unrecognized is a 500 with the detail kept server-side.
func writeDomainError(w http.ResponseWriter, err error) {
	var validation *game.ValidationError
	var invalidState *game.InvalidStateError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Reason)
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, game.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, game.ErrDuplicateWarrant):
		writeError(w, http.StatusConflict, game.ErrDuplicateWarrant.Error())
	case errors.Is(err, game.ErrRoundNotResolved):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &invalidState):
		writeError(w, http.StatusConflict, invalidState.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
