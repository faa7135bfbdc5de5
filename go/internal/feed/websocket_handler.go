package feed

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fileupload/go/internal/models"
)

// WebSocketHandler handles WebSocket upgrade requests for the submission feed
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{connectionManager: cm}
}

// HandleSubmissions subscribes the caller to one event (?event=<uri>) or to all.
func (h *WebSocketHandler) HandleSubmissions(w http.ResponseWriter, r *http.Request) {
	eventURI := r.URL.Query().Get("event")
	if eventURI != "" {
		if _, err := models.EventForURI(eventURI); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if err := h.connectionManager.UpgradeConnection(w, r, eventURI); err != nil {
		// the upgrader has already written the HTTP error
		log.Error().
			Err(err).
			Str("event", eventURI).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to write connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/submissions", h.HandleSubmissions)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
