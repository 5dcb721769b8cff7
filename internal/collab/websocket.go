package collab

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// TokenValidator resolves an access token to its session id.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// ServeWebSocket handles GET /ws/session/{id}?token=... .
func ServeWebSocket(hub *Hub, tokens TokenValidator, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := mux.Vars(r)["id"]

		// Auth via query param, the handshake carries no headers from browsers
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		granted, err := tokens.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if granted != sessionID {
			http.Error(w, "token does not grant this session", http.StatusForbidden)
			return
		}

		room, err := hub.Get(sessionID)
		if err != nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			slog.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, room, conn, uuid.New().String())
		hub.Register(client)

		ctx := r.Context()
		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}
}
