package liveauction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction/events"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction/ledger"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction/slab"
	"github.com/mcdev12/auctionhouse/go/internal/metrics"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Config holds session controller defaults
type Config struct {
	// DefaultTimer applies when neither the request, the auction record
	// nor the sport supplies a bid timer.
	DefaultTimer time.Duration
	JumpPolicy   ledger.JumpPolicy
}

// Deps are the collaborators of the session controller. Teams and Players
// are required; the rest may be nil.
type Deps struct {
	Teams    TeamsApp
	Players  PlayersApp
	Auctions AuctionsApp
	History  HistoryApp
	Outbox   OutboxApp
	Notifier Notifier
	Sports   SportDefaults
	Sessions SessionStore
	Clock    clockwork.Clock
}

// StartSessionRequest describes a session to open. Empty fields are
// filled from the auction record when AuctionID names one.
type StartSessionRequest struct {
	AuctionID      string
	Sport          string
	Name           string
	AuctioneerName string
	TeamIDs        []string
	PlayerPool     []string
	BidSlabs       []models.BidSlab
	TimerDuration  int
}

// SelectPlayerRequest names the next lot. Empty name and zero base price
// fall back to the player record.
type SelectPlayerRequest struct {
	PlayerID   string
	PlayerName string
	BasePrice  float64
}

// App is the session controller. It owns the registry of running
// sessions and serializes mutations per session.
type App struct {
	deps   Deps
	cfg    Config
	clock  clockwork.Clock
	expiry *expiryWatcher

	mu           sync.RWMutex
	sessions     map[uuid.UUID]*session
	byAuctioneer map[string]uuid.UUID
}

// NewApp creates a new session controller
func NewApp(deps Deps, cfg Config) *App {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if cfg.DefaultTimer <= 0 {
		cfg.DefaultTimer = 20 * time.Second
	}
	if cfg.JumpPolicy == "" {
		cfg.JumpPolicy = ledger.JumpPolicyAligned
	}
	a := &App{
		deps:         deps,
		cfg:          cfg,
		clock:        deps.Clock,
		sessions:     make(map[uuid.UUID]*session),
		byAuctioneer: make(map[string]uuid.UUID),
	}
	a.expiry = newExpiryWatcher(deps.Clock, a.handleExpiry)
	return a
}

// Close stops every expiry timer
func (a *App) Close() {
	a.expiry.stopAll()
}

// StartSession opens a session for the calling auctioneer.
func (a *App) StartSession(ctx context.Context, caller Caller, req StartSessionRequest) (snap *Snapshot, err error) {
	const op = "start"
	start := a.clock.Now()
	defer func() { a.observe(op, caller, sessionIDOf(snap), start, err) }()

	if err := authorize(caller); err != nil {
		return nil, err
	}
	if err := a.reserve(caller.ID); err != nil {
		return nil, err
	}
	reserved := true
	defer func() {
		if reserved {
			a.release(caller.ID)
		}
	}()

	var auction *models.Auction
	if req.AuctionID != "" && a.deps.Auctions != nil && req.Sport != "" {
		rec, err := a.deps.Auctions.GetAuction(ctx, req.Sport, req.AuctionID)
		if err != nil {
			// an unknown auction ID runs as an ad hoc session
			if lerr := lookupErr("auction", req.AuctionID, err); !errors.Is(lerr, ErrNotFound) {
				return nil, lerr
			}
		} else {
			auction = rec
		}
	}

	data, err := a.buildSession(caller, req, auction)
	if err != nil {
		return nil, err
	}
	for _, teamID := range data.TeamIDs {
		if _, err := a.deps.Teams.GetTeam(ctx, data.Sport, teamID); err != nil {
			return nil, lookupErr("team", teamID, err)
		}
	}

	s := &session{id: data.ID}
	w := &work{session: data, results: []models.PlayerResult{}}
	w.emit(events.EventTypeSessionStarted, events.SessionStartedPayload{
		SessionID:     data.ID.String(),
		AuctionID:     data.AuctionID,
		Sport:         data.Sport,
		AuctioneerID:  data.AuctioneerID,
		TeamCount:     len(data.TeamIDs),
		PoolSize:      len(data.PlayerPool),
		TimerDuration: data.TimerDuration,
		StartedAt:     data.StartedAt,
	})
	if data.AuctionID != "" && auction != nil && a.deps.Auctions != nil {
		w.afterCommit(func(ctx context.Context) {
			if err := a.deps.Auctions.MarkLive(ctx, data.Sport, data.AuctionID); err != nil {
				log.Warn().Err(err).Str("auction_id", data.AuctionID).Msg("failed to mark auction live")
			}
		})
	}
	w.afterCommit(a.logAction(models.ActionSessionStarted, map[string]interface{}{
		"sessionId":    data.ID.String(),
		"auctionId":    data.AuctionID,
		"sport":        data.Sport,
		"auctioneerId": data.AuctioneerID,
	}))

	if err := a.apply(ctx, s, w, nil); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.sessions[s.id] = s
	a.byAuctioneer[caller.ID] = s.id
	reserved = false
	a.mu.Unlock()
	a.finish(ctx, s, w)

	return a.view(s), nil
}

// SelectPlayer opens a READY lot for a player from the remaining pool.
func (a *App) SelectPlayer(ctx context.Context, sessionID uuid.UUID, caller Caller, req SelectPlayerRequest) (*Snapshot, error) {
	return a.mutate(ctx, "select_player", sessionID, caller, func(ctx context.Context, w *work) error {
		if w.ledger != nil && w.ledger.State().Active() {
			return fmt.Errorf("%w: player %s is still under the hammer", ErrInvalidState, w.ledger.PlayerID())
		}
		if !w.session.InPool(req.PlayerID) {
			return fmt.Errorf("%w: %s", ErrPlayerNotInPool, req.PlayerID)
		}
		p, err := a.deps.Players.GetPlayer(ctx, w.session.Sport, req.PlayerID)
		if err != nil {
			return lookupErr("player", req.PlayerID, err)
		}
		name := req.PlayerName
		if name == "" {
			name = p.Name
		}
		basePrice := req.BasePrice
		if basePrice == 0 {
			basePrice = p.BasePrice
		}

		l, err := ledger.New(ledger.Config{
			PlayerID:      req.PlayerID,
			PlayerName:    name,
			BasePrice:     basePrice,
			Slabs:         w.session.BidSlabs,
			TimerDuration: time.Duration(w.session.TimerDuration) * time.Second,
			JumpPolicy:    a.cfg.JumpPolicy,
		}, a.clock)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}

		sport := w.session.Sport
		if err := a.deps.Players.MarkUpNext(ctx, sport, req.PlayerID); err != nil {
			return fmt.Errorf("failed to mark player up next: %w", err)
		}
		w.onRollback(func(ctx context.Context) {
			if err := a.deps.Players.MarkAvailable(ctx, sport, req.PlayerID); err != nil {
				log.Error().Err(err).Str("player_id", req.PlayerID).Msg("failed to restore player status")
			}
		})

		w.ledger = l
		w.session.CurrentPlayerID = req.PlayerID
		w.emit(events.EventTypePlayerSelected, events.PlayerSelectedPayload{
			SessionID:  w.session.ID.String(),
			PlayerID:   req.PlayerID,
			PlayerName: name,
			BasePrice:  basePrice,
			SelectedAt: a.clock.Now(),
		})
		w.afterCommit(a.logAction(models.ActionPlayerSelected, map[string]interface{}{
			"sessionId":  w.session.ID.String(),
			"playerId":   req.PlayerID,
			"playerName": name,
			"basePrice":  basePrice,
		}))
		return nil
	})
}

// EndSession closes the session. An open lot is discarded without a
// sale and its player returns to the available pool.
func (a *App) EndSession(ctx context.Context, sessionID uuid.UUID, caller Caller) (*Snapshot, error) {
	return a.mutate(ctx, "end", sessionID, caller, func(ctx context.Context, w *work) error {
		now := a.clock.Now()
		sport := w.session.Sport

		if w.ledger != nil && w.ledger.State().Active() {
			playerID := w.ledger.PlayerID()
			if err := a.deps.Players.MarkAvailable(ctx, sport, playerID); err != nil {
				return fmt.Errorf("failed to release player %s: %w", playerID, err)
			}
			w.onRollback(func(ctx context.Context) {
				if err := a.deps.Players.MarkUpNext(ctx, sport, playerID); err != nil {
					log.Error().Err(err).Str("player_id", playerID).Msg("failed to restore player status")
				}
			})
		}

		result := models.AuctionResult{
			ID:            w.session.ID.String(),
			AuctionID:     w.session.AuctionID,
			SessionID:     w.session.ID.String(),
			Sport:         sport,
			AuctionName:   w.session.Name,
			AuctioneerID:  w.session.AuctioneerID,
			StartedAt:     w.session.StartedAt,
			CompletedAt:   now,
			TotalDuration: now.Sub(w.session.StartedAt).Milliseconds(),
			PlayerResults: w.results,
		}
		if a.deps.History != nil {
			// keyed by session, so a retried end overwrites the same archive
			if err := a.deps.History.RecordResult(ctx, result); err != nil {
				return fmt.Errorf("failed to archive auction result: %w", err)
			}
		}

		w.ledger = nil
		w.session.CurrentPlayerID = ""
		w.ended = true

		summary := summarize(w.results)
		w.emit(events.EventTypeSessionEnded, events.SessionEndedPayload{
			SessionID:     w.session.ID.String(),
			AuctionID:     w.session.AuctionID,
			PlayersSold:   summary.sold,
			PlayersUnsold: summary.unsold,
			TotalSpent:    summary.spent,
			Duration:      now.Sub(w.session.StartedAt).String(),
			EndedAt:       now,
		})
		if w.session.AuctionID != "" && a.deps.Auctions != nil {
			auctionID := w.session.AuctionID
			w.afterCommit(func(ctx context.Context) {
				if err := a.deps.Auctions.MarkCompleted(ctx, sport, auctionID); err != nil {
					log.Warn().Err(err).Str("auction_id", auctionID).Msg("failed to mark auction completed")
				}
			})
		}
		w.afterCommit(a.logAction(models.ActionSessionEnded, map[string]interface{}{
			"sessionId":     w.session.ID.String(),
			"auctionId":     w.session.AuctionID,
			"playersSold":   summary.sold,
			"playersUnsold": summary.unsold,
			"totalSpent":    summary.spent,
		}))
		return nil
	})
}

// Session returns the current view of a session
func (a *App) Session(sessionID uuid.UUID) (*Snapshot, error) {
	s, err := a.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return a.view(s), nil
}

// SessionForAuctioneer returns the session run by an auctioneer
func (a *App) SessionForAuctioneer(auctioneerID string) (*Snapshot, error) {
	a.mu.RLock()
	id, ok := a.byAuctioneer[auctioneerID]
	a.mu.RUnlock()
	if !ok || id == uuid.Nil {
		return nil, fmt.Errorf("%w: no active session for auctioneer %s", ErrNotFound, auctioneerID)
	}
	return a.Session(id)
}

// SessionForAuction returns the session running an auction record
func (a *App) SessionForAuction(auctionID string) (*Snapshot, error) {
	for _, snap := range a.ActiveSessions() {
		if snap.Session.AuctionID == auctionID {
			return snap, nil
		}
	}
	return nil, fmt.Errorf("%w: no active session for auction %s", ErrNotFound, auctionID)
}

// ActiveSessions lists running sessions, most recently started first
func (a *App) ActiveSessions() []*Snapshot {
	a.mu.RLock()
	list := make([]*session, 0, len(a.sessions))
	for _, s := range a.sessions {
		list = append(list, s)
	}
	a.mu.RUnlock()

	out := make([]*Snapshot, 0, len(list))
	for _, s := range list {
		out = append(out, a.view(s))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Session.StartedAt.After(out[j].Session.StartedAt)
	})
	return out
}

// PlayerHistory returns the bids placed on a player in a session, most
// recent last.
func (a *App) PlayerHistory(sessionID uuid.UUID, playerID string) ([]models.BidEntry, error) {
	snap, err := a.Session(sessionID)
	if err != nil {
		return nil, err
	}
	if snap.Ledger != nil && snap.Ledger.PlayerID == playerID {
		return snap.Ledger.BidHistory, nil
	}
	for _, r := range snap.Results {
		if r.PlayerID == playerID {
			return r.Bids, nil
		}
	}
	return []models.BidEntry{}, nil
}

// mutate runs fn against a working copy of the session under its lock.
// The copy replaces the session only after every external write succeeds.
func (a *App) mutate(ctx context.Context, op string, sessionID uuid.UUID, caller Caller, fn func(ctx context.Context, w *work) error) (snap *Snapshot, err error) {
	start := a.clock.Now()
	defer func() { a.observe(op, caller, sessionID, start, err) }()

	if err := authorize(caller); err != nil {
		return nil, err
	}
	s, err := a.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("%w: session %s has ended", ErrNotFound, sessionID)
	}
	if s.data.AuctioneerID != caller.ID {
		return nil, fmt.Errorf("%w: session %s belongs to another auctioneer", ErrUnauthorized, sessionID)
	}

	w := s.begin()
	if err := fn(ctx, w); err != nil {
		w.rollback(ctx)
		return nil, err
	}
	prev := s.record()
	if err := a.apply(ctx, s, w, &prev); err != nil {
		return nil, err
	}
	if w.ended {
		a.unregister(s)
	}
	a.finish(ctx, s, w)
	return a.view(s), nil
}

// apply persists w, writes its events and commits it to s. On failure
// every registered compensation runs and s is left untouched.
func (a *App) apply(ctx context.Context, s *session, w *work, prev *SessionRecord) error {
	now := a.clock.Now()
	if a.deps.Sessions != nil {
		var err error
		if w.ended {
			err = a.deps.Sessions.DeleteSession(ctx, s.id)
		} else {
			err = a.deps.Sessions.SaveSession(ctx, w.record(now))
		}
		if err != nil {
			w.rollback(ctx)
			return fmt.Errorf("failed to persist session: %w", err)
		}
		w.onRollback(func(ctx context.Context) {
			var err error
			if prev == nil {
				err = a.deps.Sessions.DeleteSession(ctx, s.id)
			} else {
				err = a.deps.Sessions.SaveSession(ctx, *prev)
			}
			if err != nil {
				log.Error().Err(err).Str("session_id", s.id.String()).Msg("failed to restore session record")
			}
		})
	}

	if a.deps.Outbox != nil {
		for _, ev := range w.events {
			payload, err := json.Marshal(ev.payload)
			if err == nil {
				err = a.deps.Outbox.InsertEvent(ctx, s.id, string(ev.eventType), payload)
			}
			if err != nil {
				w.rollback(ctx)
				return fmt.Errorf("failed to record %s event: %w", ev.eventType, err)
			}
		}
	}

	s.commit(w, now)
	return nil
}

// finish runs post-commit work: timers, follow-ups and notification
func (a *App) finish(ctx context.Context, s *session, w *work) {
	if w.ledger != nil && w.ledger.State() == models.LedgerStateLive {
		a.expiry.schedule(s.id, w.ledger.PlayerID(), w.ledger.TimeRemaining())
	} else {
		a.expiry.cancel(s.id)
	}
	for _, fn := range w.after {
		fn(ctx)
	}
	if a.deps.Notifier != nil {
		a.deps.Notifier.Notify(s.id)
	}
}

func (a *App) buildSession(caller Caller, req StartSessionRequest, auction *models.Auction) (models.LiveAuctionSession, error) {
	sport := req.Sport
	name := req.Name
	teamIDs := req.TeamIDs
	pool := req.PlayerPool
	slabs := req.BidSlabs
	timer := req.TimerDuration

	if auction != nil {
		if name == "" {
			name = auction.Name
		}
		if len(teamIDs) == 0 {
			teamIDs = auction.TeamIDs
		}
		if len(pool) == 0 {
			pool = auction.PlayerPool
		}
		if len(slabs) == 0 {
			slabs = auction.BidSlabs
		}
		if timer == 0 {
			timer = auction.TimerDuration
		}
	}
	if len(slabs) == 0 && a.deps.Sports != nil {
		slabs = a.deps.Sports.DefaultBidSlabs(sport)
	}
	if len(slabs) == 0 {
		slabs = slab.Default()
	}
	if timer == 0 && a.deps.Sports != nil {
		timer = a.deps.Sports.DefaultTimerSeconds(sport)
	}
	if timer == 0 {
		timer = int(a.cfg.DefaultTimer / time.Second)
	}

	data := models.LiveAuctionSession{
		ID:                 uuid.New(),
		AuctionID:          req.AuctionID,
		Sport:              sport,
		Name:               name,
		AuctioneerID:       caller.ID,
		AuctioneerName:     req.AuctioneerName,
		TeamIDs:            dedupe(teamIDs),
		PlayerPool:         dedupe(pool),
		CompletedPlayerIDs: []string{},
		BidSlabs:           append([]models.BidSlab(nil), slabs...),
		TimerDuration:      timer,
		StartedAt:          a.clock.Now(),
	}
	if data.AuctioneerName == "" {
		data.AuctioneerName = caller.Name
	}
	if err := validateSession(data); err != nil {
		return models.LiveAuctionSession{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return data, nil
}

func validateSession(s models.LiveAuctionSession) error {
	if s.Sport == "" {
		return fmt.Errorf("sport is required")
	}
	if len(s.TeamIDs) == 0 {
		return fmt.Errorf("at least one team is required")
	}
	if s.TimerDuration <= 0 {
		return fmt.Errorf("timer duration must be positive")
	}
	if err := slab.Validate(s.BidSlabs); err != nil {
		return err
	}
	return nil
}

// authorize rejects callers that may not drive a live auction
func authorize(caller Caller) error {
	if caller.Role != models.RoleAuctioneer {
		return fmt.Errorf("%w: only the auctioneer can control the live auction", ErrUnauthorized)
	}
	if caller.ID == "" {
		return fmt.Errorf("%w: auctioneer ID is required", ErrUnauthorized)
	}
	return nil
}

// reserve claims the auctioneer's single session slot
func (a *App) reserve(auctioneerID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byAuctioneer[auctioneerID]; ok {
		return fmt.Errorf("%w: auctioneer %s", ErrAlreadyActive, auctioneerID)
	}
	a.byAuctioneer[auctioneerID] = uuid.Nil
	return nil
}

func (a *App) release(auctioneerID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.byAuctioneer[auctioneerID] == uuid.Nil {
		delete(a.byAuctioneer, auctioneerID)
	}
}

func (a *App) unregister(s *session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, s.id)
	if a.byAuctioneer[s.data.AuctioneerID] == s.id {
		delete(a.byAuctioneer, s.data.AuctioneerID)
	}
}

func (a *App) lookup(sessionID uuid.UUID) (*session, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	return s, nil
}

func (a *App) view(s *session) *Snapshot {
	return s.snap.Load().at(a.clock.Now())
}

func (a *App) activeCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

// observe logs and records metrics for a finished operation
func (a *App) observe(op string, caller Caller, sessionID uuid.UUID, start time.Time, err error) {
	metrics.MutationDuration.WithLabelValues(op).Observe(a.clock.Since(start).Seconds())
	metrics.ActiveSessions.Set(float64(a.activeCount()))
	if err != nil {
		kind := Kind(err)
		metrics.Rejections.WithLabelValues(op, kind).Inc()
		log.Warn().
			Err(err).
			Str("operation", op).
			Str("kind", kind).
			Str("session_id", sessionID.String()).
			Str("auctioneer_id", caller.ID).
			Msg("live auction operation rejected")
		return
	}
	log.Info().
		Str("operation", op).
		Str("session_id", sessionID.String()).
		Str("auctioneer_id", caller.ID).
		Msg("live auction operation applied")
}

func (a *App) logAction(action models.HistoryAction, details map[string]interface{}) func(ctx context.Context) {
	return func(ctx context.Context) {
		if a.deps.History == nil {
			return
		}
		if err := a.deps.History.LogAction(ctx, action, details); err != nil {
			log.Warn().Err(err).Str("action", string(action)).Msg("failed to log history action")
		}
	}
}

func sessionIDOf(snap *Snapshot) uuid.UUID {
	if snap == nil {
		return uuid.Nil
	}
	return snap.Session.ID
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
