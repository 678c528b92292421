package server

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// WSHandler upgrades HTTP requests and attaches the resulting websocket to
// the hub, speaking the same protocol as the TCP path with one message per
// text frame.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewWSHandler builds the websocket entry point for a hub.
func NewWSHandler(hub *Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	s := h.hub.newSession(newWSConn(conn))
	log.Printf("session %s: accepted websocket connection from %s", s.sid, conn.RemoteAddr())
	h.hub.serveSession(r.Context(), s)
}

// Mux returns the HTTP routes served next to the TCP listener: the
// websocket endpoint and a liveness probe.
func Mux(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	return mux
}
