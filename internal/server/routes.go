package server

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/geosleuth/geocase/internal/realtime"
)

func addRoutes(r chi.Router, logger *slog.Logger, store Store, svc *GameService, hub *realtime.Hub, db *sql.DB, spaDir string) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("GeoCase API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db))
	r.Get("/ws", realtime.Handle(hub, storeVerifier{store: store}, store, logger))

	// Console auth does not require a session yet.
	r.Post("/api/console/login", handleConsoleLogin(store))
	r.Post("/api/console/logout", handleConsoleLogout(store))
	r.Get("/api/console/me", handleConsoleMe(store))

	// Case authoring, console only.
	r.Route("/api/cases", func(r chi.Router) {
		r.Use(consoleAuthMiddleware(store))
		r.Get("/", handleListCases(store))
		r.Post("/", handleCreateCase(store))
		r.Get("/{caseID}", handleGetCase(store))
		r.Delete("/{caseID}", handleDeleteCase(store))
	})

	r.Route("/api/sessions", func(r chi.Router) {
		// Console-driven session commands.
		r.Group(func(r chi.Router) {
			r.Use(consoleAuthMiddleware(store))
			r.Post("/", handleCreateSession(svc))
			r.Get("/", handleListSessions(store))
			r.Post("/{sessionID}/start", handleStartSession(svc))
			r.Post("/{sessionID}/pause", handlePauseSession(svc))
			r.Post("/{sessionID}/resume", handleResumeSession(svc))
			r.Post("/{sessionID}/complete", handleCompleteSession(svc))
			r.Post("/{sessionID}/rounds/advance", handleAdvanceRound(svc))
			r.Post("/{sessionID}/clues/reveal", handleRevealClue(svc))
			r.Post("/{sessionID}/clues/reveal-all", handleRevealAll(svc))
			r.Post("/{sessionID}/clues/reset", handleResetClues(svc))
		})

		// Open to anyone holding the session id.
		r.Post("/{sessionID}/join", handleJoinSession(svc))
		r.Get("/{sessionID}/state", handleSessionState(svc))
		r.Get("/{sessionID}/scoreboard", handleScoreboard(svc))

		// Team commands, gated by the bearer token.
		r.Group(func(r chi.Router) {
			r.Use(teamAuthMiddleware(store))
			r.Post("/{sessionID}/leave", handleLeaveSession(svc))
			r.Post("/{sessionID}/warrants", handleSubmitWarrant(svc))
			r.Get("/{sessionID}/score-events", handleScoreHistory(store))
		})
	})

	if spaDir != "" {
		if info, err := os.Stat(spaDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", spaDir)
			r.NotFound(handleSPA(spaDir))
		}
	}
}
