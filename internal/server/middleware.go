package server

import (
	"context"
	"net/http"
)

type ctxKey int

const (
	ctxKeyTeam ctxKey = iota
	ctxKeyConsole
)

// consoleAuthMiddleware gates console routes behind the session cookie.
func consoleAuthMiddleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := consoleFromRequest(r, store)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyConsole, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// teamAuthMiddleware gates team routes behind the bearer token.
func teamAuthMiddleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := teamFromRequest(r, store)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyTeam, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func teamFrom(r *http.Request) teamSession {
	return r.Context().Value(ctxKeyTeam).(teamSession)
}

func consoleFrom(r *http.Request) consoleSession {
	return r.Context().Value(ctxKeyConsole).(consoleSession)
}
