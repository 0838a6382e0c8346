package host

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/mathlan/internal/events"
	"github.com/mcoot/mathlan/internal/middleware"
)

// newRouter serves the websocket endpoint on "/" and "/ws" alongside a
// small read-only HTTP surface
func newRouter(s *Session) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recovery(s.logger, func(r *http.Request) {
		s.metrics.HandlerPanicked(r.URL.Path)
	}))
	r.Use(middleware.Logging(s.logger, "/healthz", "/metrics"))

	r.HandleFunc("/", s.serveWS).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.serveWS).Methods(http.MethodGet)

	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/lobby", s.lobbyHandler).Methods(http.MethodGet)
	r.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		events.ServeSSE(w, r, s.bus)
	}).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Session) lobbyHandler(w http.ResponseWriter, r *http.Request) {
	lobby, err := s.Lobby()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, lobby)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
