package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers connect from the SPA origin; token auth gates access.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades GET /ws?token=... connections. The token is verified
// before the upgrade; an invalid credential never reaches a room.
func Handle(hub *Hub, verifier Verifier, sessions SessionChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			unauthorized(w, "token query parameter required")
			return
		}

		identity, err := verifier.Verify(r.Context(), token)
		if err != nil {
			unauthorized(w, "invalid credential")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", "error", err)
			return
		}

		client := newClient(hub, conn, identity, sessions, logger)
		logger.Debug("client connected", "clientId", client.ID, "userId", identity.UserID, "role", identity.Role)
		client.run(r.Context())
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
