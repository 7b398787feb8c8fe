package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"ChatDesk/server/internal/appMiddleware"
	"ChatDesk/server/internal/pool"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler attaches an operator to the push channel. Everything sent
// down this socket is an invalidation hint; the client re-queries the REST
// API for current state.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	userID, err := appMiddleware.ParseUserID(tokenStr)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("Operator %d connected to WebSocket", userID)

	clientPool := pool.GlobalPool
	clientPool.AddClient(userID, conn)
	defer clientPool.RemoveClient(userID)

	for {
		var msg struct {
			Event string `json:"event"`
		}

		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("Error reading message from operator %d: %v", userID, err)
			break
		}

		switch msg.Event {
		case "ping":
			clientPool.RefreshPresence(userID)
			if err := conn.WriteJSON(map[string]string{"event": "pong"}); err != nil {
				log.Printf("Error sending pong to operator %d: %v", userID, err)
				return
			}
		default:
			log.Printf("Operator %d sent unknown event %q", userID, msg.Event)
		}
	}
}

// ListOnlineOperators reports which operators currently hold a live
// presence key.
func ListOnlineOperators(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}

	online, err := pool.GlobalPool.OnlineOperators(r.Context())
	if err != nil {
		log.Printf("Error listing online operators: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"online": online})
}
