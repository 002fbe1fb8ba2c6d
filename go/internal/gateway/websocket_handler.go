package gateway

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for session viewers
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	auctions          *liveauction.App
}

func NewWebSocketHandler(cm *ConnectionManager, auctions *liveauction.App) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		auctions:          auctions,
	}
}

// HandleSessionConnection subscribes a viewer to a session named by
// sessionId, or to the session an auctioneerId is running
func (h *WebSocketHandler) HandleSessionConnection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var sessionID uuid.UUID
	switch {
	case q.Get("sessionId") != "":
		id, err := uuid.Parse(q.Get("sessionId"))
		if err != nil {
			http.Error(w, "invalid sessionId format", http.StatusBadRequest)
			return
		}
		sessionID = id
	case q.Get("auctioneerId") != "":
		snap, err := h.auctions.SessionForAuctioneer(q.Get("auctioneerId"))
		if err != nil {
			writeErr(w, err)
			return
		}
		sessionID = snap.Session.ID
	default:
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	if _, err := h.auctions.Session(sessionID); err != nil {
		writeErr(w, err)
		return
	}

	_, userID := queryIdentity(r)
	if userID == "" {
		userID = "anonymous"
	}

	if err := h.connectionManager.UpgradeConnection(w, r, userID, sessionID); err != nil {
		// the upgrader has already replied to the client
		log.Error().
			Err(err).
			Str("session_id", sessionID.String()).
			Str("user_id", userID).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.Stats())
}

func (h *WebSocketHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/live-auction", h.HandleSessionConnection).Methods(http.MethodGet)
	r.HandleFunc("/ws/stats", h.HandleConnectionStats).Methods(http.MethodGet)
}
