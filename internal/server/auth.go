package server

import (
	"errors"
	"net/http"
	"strings"
)

var (
	errNoSession        = errors.New("no valid session")
	errNoConsoleSession = errors.New("no valid console session")
)

const consoleCookieName = "console_session"

// teamFromRequest resolves the team bearer token from the Authorization
// header.
func teamFromRequest(r *http.Request, store Store) (teamSession, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return teamSession{}, errNoSession
	}
	return store.TeamFromToken(r.Context(), token)
}

// consoleFromRequest reads the console_session cookie and looks up the
// console session.
func consoleFromRequest(r *http.Request, store Store) (consoleSession, error) {
	cookie, err := r.Cookie(consoleCookieName)
	if err != nil || cookie.Value == "" {
		return consoleSession{}, errNoConsoleSession
	}
	return store.ConsoleFromSession(r.Context(), cookie.Value)
}
