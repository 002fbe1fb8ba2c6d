package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
)

// TeamReader loads the teams shown alongside a session
type TeamReader interface {
	GetTeams(ctx context.Context, sport string, ids []string) ([]models.Team, error)
}

// PlayerReader loads the player under the hammer
type PlayerReader interface {
	GetPlayer(ctx context.Context, sport, id string) (*models.Player, error)
}

// LiveAuctionHandler serves the /live-auction endpoints
type LiveAuctionHandler struct {
	auctions *liveauction.App
	teams    TeamReader
	players  PlayerReader
	clock    clockwork.Clock
}

func NewLiveAuctionHandler(auctions *liveauction.App, teams TeamReader, players PlayerReader, clock clockwork.Clock) *LiveAuctionHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LiveAuctionHandler{
		auctions: auctions,
		teams:    teams,
		players:  players,
		clock:    clock,
	}
}

// actionRequest is the body of every mutating call. Fields unused by an
// operation are ignored.
type actionRequest struct {
	SessionID      string `json:"sessionId"`
	UserRole       string `json:"userRole"`
	AuctioneerID   string `json:"auctioneerId"`
	AuctioneerName string `json:"auctioneerName"`

	// start
	AuctionID     string           `json:"auctionId"`
	Sport         string           `json:"sport"`
	Name          string           `json:"name"`
	TeamIDs       []string         `json:"teamIds"`
	PlayerPool    []string         `json:"playerPool"`
	BidSlabs      []models.BidSlab `json:"bidSlabs"`
	TimerDuration int              `json:"timerDuration"`

	// select-player
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	BasePrice  float64 `json:"basePrice"`

	// bid, jump-bid
	TeamID     string  `json:"teamId"`
	TeamName   string  `json:"teamName"`
	JumpAmount float64 `json:"jumpAmount"`
}

func (req actionRequest) caller(r *http.Request) liveauction.Caller {
	return liveauction.Caller{
		ID:   firstNonEmpty(req.AuctioneerID, r.Header.Get(headerUserID)),
		Name: req.AuctioneerName,
		Role: models.Role(firstNonEmpty(req.UserRole, r.Header.Get(headerUserRole))),
	}
}

type sessionOp func(ctx context.Context, sessionID uuid.UUID, caller liveauction.Caller, req actionRequest) (*liveauction.Snapshot, error)

// RegisterRoutes registers the live auction routes on r
func (h *LiveAuctionHandler) RegisterRoutes(r *mux.Router) {
	s := r.PathPrefix("/live-auction").Subrouter()

	s.HandleFunc("/start", h.handleStart).Methods(http.MethodPost)
	s.HandleFunc("/select-player", h.action(h.selectPlayer)).Methods(http.MethodPost)
	s.HandleFunc("/start-bidding", h.action(func(ctx context.Context, id uuid.UUID, c liveauction.Caller, _ actionRequest) (*liveauction.Snapshot, error) {
		return h.auctions.StartBidding(ctx, id, c)
	})).Methods(http.MethodPost)
	s.HandleFunc("/bid", h.action(h.bid)).Methods(http.MethodPost)
	s.HandleFunc("/jump-bid", h.action(h.jumpBid)).Methods(http.MethodPost)
	s.HandleFunc("/pause", h.action(func(ctx context.Context, id uuid.UUID, c liveauction.Caller, _ actionRequest) (*liveauction.Snapshot, error) {
		return h.auctions.PauseBidding(ctx, id, c)
	})).Methods(http.MethodPost)
	s.HandleFunc("/resume", h.action(func(ctx context.Context, id uuid.UUID, c liveauction.Caller, _ actionRequest) (*liveauction.Snapshot, error) {
		return h.auctions.ResumeBidding(ctx, id, c)
	})).Methods(http.MethodPost)
	s.HandleFunc("/sold", h.action(func(ctx context.Context, id uuid.UUID, c liveauction.Caller, _ actionRequest) (*liveauction.Snapshot, error) {
		return h.auctions.MarkSold(ctx, id, c)
	})).Methods(http.MethodPost)
	s.HandleFunc("/unsold", h.action(func(ctx context.Context, id uuid.UUID, c liveauction.Caller, _ actionRequest) (*liveauction.Snapshot, error) {
		return h.auctions.MarkUnsold(ctx, id, c)
	})).Methods(http.MethodPost)
	s.HandleFunc("/end", h.action(func(ctx context.Context, id uuid.UUID, c liveauction.Caller, _ actionRequest) (*liveauction.Snapshot, error) {
		return h.auctions.EndSession(ctx, id, c)
	})).Methods(http.MethodPost)

	s.HandleFunc("/state", h.handleState).Methods(http.MethodGet)
	s.HandleFunc("/sessions", h.handleSessions).Methods(http.MethodGet)
	s.HandleFunc("/history/{playerId}", h.handlePlayerHistory).Methods(http.MethodGet)
}

func decodeAction(r *http.Request) (actionRequest, error) {
	var req actionRequest
	if r.Body == nil {
		return req, nil
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return req, fmt.Errorf("%w: malformed body: %v", liveauction.ErrInvalidRequest, err)
	}
	return req, nil
}

// gate rejects non-auctioneers before any session lookup
func gate(c liveauction.Caller) error {
	if c.Role != models.RoleAuctioneer {
		return fmt.Errorf("%w: only auctioneers can run a live auction", liveauction.ErrUnauthorized)
	}
	return nil
}

func (h *LiveAuctionHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAction(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	caller := req.caller(r)
	if err := gate(caller); err != nil {
		writeErr(w, err)
		return
	}

	snap, err := h.auctions.StartSession(r.Context(), caller, liveauction.StartSessionRequest{
		AuctionID:      req.AuctionID,
		Sport:          req.Sport,
		Name:           req.Name,
		AuctioneerName: req.AuctioneerName,
		TeamIDs:        req.TeamIDs,
		PlayerPool:     req.PlayerPool,
		BidSlabs:       req.BidSlabs,
		TimerDuration:  req.TimerDuration,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"sessionId": snap.Session.ID,
		"session":   snap.Session,
	})
}

// action wraps a session mutation: decode, gate, resolve the session and
// reply with the committed ledger.
func (h *LiveAuctionHandler) action(op sessionOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeAction(r)
		if err != nil {
			writeErr(w, err)
			return
		}
		caller := req.caller(r)
		if err := gate(caller); err != nil {
			writeErr(w, err)
			return
		}
		sessionID, err := h.mutationTarget(req, caller)
		if err != nil {
			writeErr(w, err)
			return
		}

		snap, err := op(r.Context(), sessionID, caller, req)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"ledger":  snap.Ledger,
			"session": snap.Session,
		})
	}
}

// mutationTarget picks the session named in the body, else the one the
// auctioneer is running.
func (h *LiveAuctionHandler) mutationTarget(req actionRequest, caller liveauction.Caller) (uuid.UUID, error) {
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: invalid sessionId %q", liveauction.ErrInvalidRequest, req.SessionID)
		}
		return id, nil
	}
	snap, err := h.auctions.SessionForAuctioneer(caller.ID)
	if err != nil {
		return uuid.Nil, err
	}
	return snap.Session.ID, nil
}

func (h *LiveAuctionHandler) selectPlayer(ctx context.Context, id uuid.UUID, c liveauction.Caller, req actionRequest) (*liveauction.Snapshot, error) {
	if req.PlayerID == "" {
		return nil, fmt.Errorf("%w: playerId is required", liveauction.ErrInvalidRequest)
	}
	return h.auctions.SelectPlayer(ctx, id, c, liveauction.SelectPlayerRequest{
		PlayerID:   req.PlayerID,
		PlayerName: req.PlayerName,
		BasePrice:  req.BasePrice,
	})
}

func (h *LiveAuctionHandler) bid(ctx context.Context, id uuid.UUID, c liveauction.Caller, req actionRequest) (*liveauction.Snapshot, error) {
	if req.TeamID == "" {
		return nil, fmt.Errorf("%w: teamId is required", liveauction.ErrInvalidRequest)
	}
	return h.auctions.ConfirmBid(ctx, id, c, req.TeamID)
}

func (h *LiveAuctionHandler) jumpBid(ctx context.Context, id uuid.UUID, c liveauction.Caller, req actionRequest) (*liveauction.Snapshot, error) {
	if req.TeamID == "" {
		return nil, fmt.Errorf("%w: teamId is required", liveauction.ErrInvalidRequest)
	}
	return h.auctions.SubmitJumpBid(ctx, id, c, req.TeamID, req.JumpAmount)
}

// StateResponse is the polled view of a live auction
type StateResponse struct {
	Success          bool                       `json:"success"`
	Session          *models.LiveAuctionSession `json:"session"`
	Ledger           *models.TempAuctionLedger  `json:"ledger"`
	Teams            []models.Team              `json:"teams"`
	CurrentPlayer    *models.Player             `json:"currentPlayer"`
	HasActiveAuction bool                       `json:"hasActiveAuction"`
	Version          uint64                     `json:"version"`
	ServerTime       time.Time                  `json:"serverTime"`
}

// findSession selects a session by sessionId, auctioneerId or auctionId
// query, else the most recently started one. A nil snapshot with a nil
// error means no auction is running.
func (h *LiveAuctionHandler) findSession(r *http.Request) (*liveauction.Snapshot, error) {
	q := r.URL.Query()
	switch {
	case q.Get("sessionId") != "":
		id, err := uuid.Parse(q.Get("sessionId"))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid sessionId %q", liveauction.ErrInvalidRequest, q.Get("sessionId"))
		}
		return h.auctions.Session(id)
	case q.Get("auctioneerId") != "":
		return orNone(h.auctions.SessionForAuctioneer(q.Get("auctioneerId")))
	case q.Get("auctionId") != "":
		return orNone(h.auctions.SessionForAuction(q.Get("auctionId")))
	}
	if active := h.auctions.ActiveSessions(); len(active) > 0 {
		return active[0], nil
	}
	return nil, nil
}

func orNone(snap *liveauction.Snapshot, err error) (*liveauction.Snapshot, error) {
	if errors.Is(err, liveauction.ErrNotFound) {
		return nil, nil
	}
	return snap, err
}

func (h *LiveAuctionHandler) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.findSession(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.BuildState(r.Context(), snap))
}

// BuildState assembles the state response for a snapshot. Team and player
// lookups are best effort.
func (h *LiveAuctionHandler) BuildState(ctx context.Context, snap *liveauction.Snapshot) StateResponse {
	resp := StateResponse{
		Success:    true,
		Teams:      []models.Team{},
		ServerTime: h.clock.Now(),
	}
	if snap == nil {
		return resp
	}

	session := snap.Session
	resp.Session = &session
	resp.Ledger = snap.Ledger
	resp.HasActiveAuction = true
	resp.Version = snap.Version

	if h.teams != nil {
		teams, err := h.teams.GetTeams(ctx, session.Sport, session.TeamIDs)
		if err != nil {
			log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("failed to load session teams")
		} else {
			resp.Teams = teams
		}
	}
	if h.players != nil && snap.Ledger != nil {
		p, err := h.players.GetPlayer(ctx, session.Sport, snap.Ledger.PlayerID)
		if err != nil {
			log.Warn().Err(err).Str("player_id", snap.Ledger.PlayerID).Msg("failed to load current player")
		} else {
			resp.CurrentPlayer = p
		}
	}
	return resp
}

func (h *LiveAuctionHandler) handleSessions(w http.ResponseWriter, r *http.Request) {
	active := h.auctions.ActiveSessions()
	sessions := make([]models.LiveAuctionSession, 0, len(active))
	for _, snap := range active {
		sessions = append(sessions, snap.Session)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"sessions": sessions,
		"total":    len(sessions),
	})
}

func (h *LiveAuctionHandler) handlePlayerHistory(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["playerId"]

	snap, err := h.findSession(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if snap == nil {
		writeErr(w, fmt.Errorf("%w: no active auction", liveauction.ErrNotFound))
		return
	}

	bids, err := h.auctions.PlayerHistory(snap.Session.ID, playerID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"history": bids,
	})
}
