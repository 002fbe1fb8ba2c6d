package gateway

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mcdev12/auctionhouse/go/internal/history"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

// HistoryHandler serves archived auctions and the ledgers of running ones.
// Only admins and auctioneers may read; auctioneers see their own auctions.
type HistoryHandler struct {
	history  *history.App
	auctions *liveauction.App
}

func NewHistoryHandler(h *history.App, auctions *liveauction.App) *HistoryHandler {
	return &HistoryHandler{history: h, auctions: auctions}
}

func (h *HistoryHandler) RegisterRoutes(r *mux.Router) {
	s := r.PathPrefix("/auction-history").Subrouter()
	s.HandleFunc("", h.handleList).Methods(http.MethodGet)
	s.HandleFunc("/", h.handleList).Methods(http.MethodGet)
	s.HandleFunc("/stats", h.handleStats).Methods(http.MethodGet)
	s.HandleFunc("/ledgers/active", h.handleActiveLedgers).Methods(http.MethodGet)
	s.HandleFunc("/ledgers/{auctionId}", h.handleLedger).Methods(http.MethodGet)
	s.HandleFunc("/{auctionId}", h.handleGet).Methods(http.MethodGet)
}

func viewerOf(r *http.Request) history.Viewer {
	role, id := queryIdentity(r)
	return history.Viewer{Role: role, UserID: id}
}

func filterOf(r *http.Request) history.Filter {
	q := r.URL.Query()
	return history.Filter{Sport: q.Get("sport"), AuctioneerID: q.Get("auctioneerId")}
}

func (h *HistoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	results, err := h.history.Results(r.Context(), viewerOf(r), filterOf(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"history": results,
		"total":   len(results),
	})
}

func (h *HistoryHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.history.Stats(r.Context(), viewerOf(r), filterOf(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

func (h *HistoryHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	result, err := h.history.Result(r.Context(), viewerOf(r), mux.Vars(r)["auctionId"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"auction": result,
	})
}

// canRead reports whether the viewer may see a session's ledger
func canRead(v history.Viewer, s models.LiveAuctionSession) bool {
	switch v.Role {
	case models.RoleAdmin:
		return true
	case models.RoleAuctioneer:
		return s.AuctioneerID == v.UserID
	}
	return false
}

func requireReader(v history.Viewer) error {
	if v.Role != models.RoleAdmin && v.Role != models.RoleAuctioneer {
		return history.ErrForbidden
	}
	return nil
}

type ledgerView struct {
	SessionID    string                    `json:"sessionId"`
	AuctionID    string                    `json:"auctionId"`
	Sport        string                    `json:"sport"`
	AuctioneerID string                    `json:"auctioneerId"`
	Ledger       *models.TempAuctionLedger `json:"ledger"`
	Results      []models.PlayerResult     `json:"results"`
}

func viewOf(snap *liveauction.Snapshot) ledgerView {
	return ledgerView{
		SessionID:    snap.Session.ID.String(),
		AuctionID:    snap.Session.AuctionID,
		Sport:        snap.Session.Sport,
		AuctioneerID: snap.Session.AuctioneerID,
		Ledger:       snap.Ledger,
		Results:      snap.Results,
	}
}

func (h *HistoryHandler) handleActiveLedgers(w http.ResponseWriter, r *http.Request) {
	viewer := viewerOf(r)
	if err := requireReader(viewer); err != nil {
		writeErr(w, err)
		return
	}

	ledgers := []ledgerView{}
	for _, snap := range h.auctions.ActiveSessions() {
		if canRead(viewer, snap.Session) {
			ledgers = append(ledgers, viewOf(snap))
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"ledgers": ledgers,
		"total":   len(ledgers),
	})
}

func (h *HistoryHandler) handleLedger(w http.ResponseWriter, r *http.Request) {
	viewer := viewerOf(r)
	if err := requireReader(viewer); err != nil {
		writeErr(w, err)
		return
	}

	snap, err := h.auctions.SessionForAuction(mux.Vars(r)["auctionId"])
	if err != nil {
		writeErr(w, err)
		return
	}
	if !canRead(viewer, snap.Session) {
		writeErr(w, fmt.Errorf("%w: you can only view your own auctions", history.ErrForbidden))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"ledger":  viewOf(snap),
	})
}
