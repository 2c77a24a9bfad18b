package websocket

import (
	"log"
	"net/http"
	"strings"

	"wishlist/internal/util"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the JWT is the credential; origin is not checked
	CheckOrigin: func(r *http.Request) bool { return true },
}

// tokenFromRequest reads ?token= first, then a Bearer Authorization header
func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if rest, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}

// ServeWS upgrades an authenticated request and attaches the connection to
// the hub under the token's user
func ServeWS(hub *Hub, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			http.Error(w, "Authorization token required", http.StatusUnauthorized)
			return
		}

		claims, err := util.ValidateToken(token, jwtSecret)
		if err != nil || claims.UserID == "" {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for user %s: %v", claims.UserID, err)
			return
		}

		client := NewClient(hub, conn, claims.UserID)
		select {
		case hub.register <- client:
			go client.Start()
		case <-hub.done:
			conn.Close()
		}
	}
}
