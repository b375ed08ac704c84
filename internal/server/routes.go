package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes configures and returns the HTTP router: a health check and the
// WebSocket endpoint.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.WebSocketHandler).Methods(http.MethodGet)
	return r
}
