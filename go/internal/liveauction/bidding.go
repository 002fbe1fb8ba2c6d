package liveauction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction/events"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction/ledger"
	"github.com/mcdev12/auctionhouse/go/internal/metrics"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// StartBidding opens the READY lot and starts its timer.
func (a *App) StartBidding(ctx context.Context, sessionID uuid.UUID, caller Caller) (*Snapshot, error) {
	return a.mutate(ctx, "start_bidding", sessionID, caller, func(ctx context.Context, w *work) error {
		if err := requireLedger(w); err != nil {
			return err
		}
		if err := w.ledger.StartBidding(); err != nil {
			return err
		}
		snap := w.ledger.Snapshot()
		w.emit(events.EventTypeBiddingStarted, events.BiddingStartedPayload{
			SessionID:      w.session.ID.String(),
			PlayerID:       snap.PlayerID,
			TimerStartedAt: *snap.TimerStartedAt,
			TimerDuration:  snap.TimerDuration,
		})
		return nil
	})
}

// ConfirmBid places a bid one slab step above the current bid for a team.
func (a *App) ConfirmBid(ctx context.Context, sessionID uuid.UUID, caller Caller, teamID string) (*Snapshot, error) {
	return a.mutate(ctx, "bid", sessionID, caller, func(ctx context.Context, w *work) error {
		if err := requireLedger(w); err != nil {
			return err
		}
		bidder, err := a.bidder(ctx, w, teamID)
		if err != nil {
			return err
		}
		entry, err := w.ledger.ConfirmBid(bidder)
		if err != nil {
			return err
		}
		a.emitBid(w, entry)
		return nil
	})
}

// SubmitJumpBid places a bid for an explicit amount.
func (a *App) SubmitJumpBid(ctx context.Context, sessionID uuid.UUID, caller Caller, teamID string, amount float64) (*Snapshot, error) {
	return a.mutate(ctx, "jump_bid", sessionID, caller, func(ctx context.Context, w *work) error {
		if err := requireLedger(w); err != nil {
			return err
		}
		bidder, err := a.bidder(ctx, w, teamID)
		if err != nil {
			return err
		}
		entry, err := w.ledger.SubmitJumpBid(bidder, amount)
		if err != nil {
			return err
		}
		a.emitBid(w, entry)
		return nil
	})
}

// PauseBidding freezes the countdown.
func (a *App) PauseBidding(ctx context.Context, sessionID uuid.UUID, caller Caller) (*Snapshot, error) {
	return a.mutate(ctx, "pause", sessionID, caller, func(ctx context.Context, w *work) error {
		if err := requireLedger(w); err != nil {
			return err
		}
		if err := w.ledger.Pause(); err != nil {
			return err
		}
		w.emit(events.EventTypeBiddingPaused, events.BiddingPausedPayload{
			SessionID:        w.session.ID.String(),
			PlayerID:         w.ledger.PlayerID(),
			RemainingSeconds: w.ledger.TimeRemaining().Seconds(),
			PausedAt:         a.clock.Now(),
		})
		return nil
	})
}

// ResumeBidding continues the countdown from where it was paused.
func (a *App) ResumeBidding(ctx context.Context, sessionID uuid.UUID, caller Caller) (*Snapshot, error) {
	return a.mutate(ctx, "resume", sessionID, caller, func(ctx context.Context, w *work) error {
		if err := requireLedger(w); err != nil {
			return err
		}
		if err := w.ledger.Resume(); err != nil {
			return err
		}
		snap := w.ledger.Snapshot()
		w.emit(events.EventTypeBiddingResumed, events.BiddingResumedPayload{
			SessionID:      w.session.ID.String(),
			PlayerID:       snap.PlayerID,
			TimerStartedAt: *snap.TimerStartedAt,
			ResumedAt:      a.clock.Now(),
		})
		return nil
	})
}

// MarkSold closes the lot to the highest bidder. The team's purse and
// roster and the player's record are updated before the sale commits.
func (a *App) MarkSold(ctx context.Context, sessionID uuid.UUID, caller Caller) (*Snapshot, error) {
	return a.mutate(ctx, "sold", sessionID, caller, func(ctx context.Context, w *work) error {
		if err := requireLedger(w); err != nil {
			return err
		}
		sale, err := w.ledger.MarkSold()
		if err != nil {
			return err
		}
		sport := w.session.Sport

		if _, err := a.deps.Teams.RecordPurchase(ctx, sport, sale.TeamID, sale.PlayerID, sale.Amount); err != nil {
			return fmt.Errorf("failed to record purchase: %w", err)
		}
		w.onRollback(func(ctx context.Context) {
			if err := a.deps.Teams.RevertPurchase(ctx, sport, sale.TeamID, sale.PlayerID, sale.Amount); err != nil {
				log.Error().Err(err).Str("team_id", sale.TeamID).Str("player_id", sale.PlayerID).Msg("failed to revert purchase")
			}
		})
		if err := a.deps.Players.MarkSold(ctx, sport, sale.PlayerID, sale.TeamID, sale.Amount); err != nil {
			return fmt.Errorf("failed to mark player sold: %w", err)
		}
		w.onRollback(func(ctx context.Context) {
			if err := a.deps.Players.MarkUpNext(ctx, sport, sale.PlayerID); err != nil {
				log.Error().Err(err).Str("player_id", sale.PlayerID).Msg("failed to restore player status")
			}
		})

		now := a.clock.Now()
		a.closeLot(w, models.PlayerResult{
			PlayerID:   sale.PlayerID,
			PlayerName: sale.PlayerName,
			Status:     models.LotOutcomeSold,
			FinalPrice: sale.Amount,
			TeamID:     sale.TeamID,
			TeamName:   sale.TeamName,
			ClosedAt:   now,
		})
		w.emit(events.EventTypePlayerSold, events.PlayerSoldPayload{
			SessionID:  w.session.ID.String(),
			PlayerID:   sale.PlayerID,
			PlayerName: sale.PlayerName,
			TeamID:     sale.TeamID,
			TeamName:   sale.TeamName,
			Amount:     sale.Amount,
			SoldAt:     now,
		})
		w.afterCommit(func(ctx context.Context) {
			metrics.LotsClosed.WithLabelValues(string(models.LotOutcomeSold)).Inc()
		})
		w.afterCommit(a.logAction(models.ActionPlayerSold, map[string]interface{}{
			"sessionId":  w.session.ID.String(),
			"playerId":   sale.PlayerID,
			"playerName": sale.PlayerName,
			"teamId":     sale.TeamID,
			"teamName":   sale.TeamName,
			"price":      sale.Amount,
		}))
		return nil
	})
}

// MarkUnsold closes the lot without a sale. The player leaves the pool.
func (a *App) MarkUnsold(ctx context.Context, sessionID uuid.UUID, caller Caller) (*Snapshot, error) {
	return a.mutate(ctx, "unsold", sessionID, caller, func(ctx context.Context, w *work) error {
		if err := requireLedger(w); err != nil {
			return err
		}
		if err := w.ledger.MarkUnsold(); err != nil {
			return err
		}
		sport := w.session.Sport
		playerID := w.ledger.PlayerID()

		if err := a.deps.Players.MarkUnsold(ctx, sport, playerID); err != nil {
			return fmt.Errorf("failed to mark player unsold: %w", err)
		}
		w.onRollback(func(ctx context.Context) {
			if err := a.deps.Players.MarkUpNext(ctx, sport, playerID); err != nil {
				log.Error().Err(err).Str("player_id", playerID).Msg("failed to restore player status")
			}
		})

		now := a.clock.Now()
		a.closeLot(w, models.PlayerResult{
			PlayerID:   playerID,
			PlayerName: w.ledger.PlayerName(),
			Status:     models.LotOutcomeUnsold,
			ClosedAt:   now,
		})
		w.emit(events.EventTypePlayerUnsold, events.PlayerUnsoldPayload{
			SessionID:  w.session.ID.String(),
			PlayerID:   playerID,
			PlayerName: w.ledger.PlayerName(),
			ClosedAt:   now,
		})
		w.afterCommit(func(ctx context.Context) {
			metrics.LotsClosed.WithLabelValues(string(models.LotOutcomeUnsold)).Inc()
		})
		w.afterCommit(a.logAction(models.ActionPlayerUnsold, map[string]interface{}{
			"sessionId":  w.session.ID.String(),
			"playerId":   playerID,
			"playerName": w.ledger.PlayerName(),
		}))
		return nil
	})
}

// closeLot moves the lot's player out of the pool and records its result
func (a *App) closeLot(w *work, result models.PlayerResult) {
	snap := w.ledger.Snapshot()
	result.BasePrice = snap.BasePrice
	result.Bids = snap.BidHistory
	w.results = append(w.results, result)
	w.session.PlayerPool = removeID(w.session.PlayerPool, result.PlayerID)
	w.session.CompletedPlayerIDs = append(w.session.CompletedPlayerIDs, result.PlayerID)
}

// bidder resolves a participating team and its current purse
func (a *App) bidder(ctx context.Context, w *work, teamID string) (ledger.Bidder, error) {
	if !w.session.HasTeam(teamID) {
		return ledger.Bidder{}, fmt.Errorf("%w: team %s is not in this auction", ErrNotFound, teamID)
	}
	team, err := a.deps.Teams.GetTeam(ctx, w.session.Sport, teamID)
	if err != nil {
		return ledger.Bidder{}, lookupErr("team", teamID, err)
	}
	return ledger.Bidder{
		TeamID:         team.ID,
		TeamName:       team.Name,
		PurseRemaining: team.PurseRemaining,
	}, nil
}

func (a *App) emitBid(w *work, entry models.BidEntry) {
	w.emit(events.EventTypeBidPlaced, events.BidPlacedPayload{
		SessionID: w.session.ID.String(),
		PlayerID:  w.ledger.PlayerID(),
		BidID:     entry.ID,
		TeamID:    entry.TeamID,
		TeamName:  entry.TeamName,
		Amount:    entry.BidAmount,
		Kind:      string(entry.Kind),
		PlacedAt:  entry.Timestamp,
	})
	w.afterCommit(func(ctx context.Context) {
		metrics.BidsAccepted.WithLabelValues(string(entry.Kind)).Inc()
	})
}

// handleExpiry reports a bid timer that ran out. The lot stays LIVE.
func (a *App) handleExpiry(sessionID uuid.UUID, playerID string) {
	s, err := a.lookup(sessionID)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ledger
	if s.closed || l == nil || l.PlayerID() != playerID ||
		l.State() != models.LedgerStateLive || l.TimeRemaining() > 0 {
		return
	}

	payload, err := json.Marshal(events.BiddingTimerExpiredPayload{
		SessionID:  sessionID.String(),
		PlayerID:   playerID,
		CurrentBid: l.CurrentBid(),
		HasBids:    l.HighestBidder() != nil,
		ExpiredAt:  a.clock.Now(),
	})
	if err == nil && a.deps.Outbox != nil {
		err = a.deps.Outbox.InsertEvent(context.Background(), sessionID, string(events.EventTypeBiddingTimerExpired), payload)
	}
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to record timer expiry")
	}

	metrics.TimerExpirations.Inc()
	log.Info().
		Str("session_id", sessionID.String()).
		Str("player_id", playerID).
		Float64("current_bid", l.CurrentBid()).
		Msg("bid timer expired")
	if a.deps.Notifier != nil {
		a.deps.Notifier.Notify(sessionID)
	}
}

func requireLedger(w *work) error {
	if w.ledger == nil {
		return fmt.Errorf("%w: no player selected", ErrInvalidState)
	}
	return nil
}

type resultTotals struct {
	sold   int
	unsold int
	spent  float64
}

func summarize(results []models.PlayerResult) resultTotals {
	var t resultTotals
	spent := decimal.Zero
	for _, r := range results {
		if r.Status == models.LotOutcomeSold {
			t.sold++
			spent = spent.Add(decimal.NewFromFloat(r.FinalPrice))
		} else {
			t.unsold++
		}
	}
	t.spent = spent.InexactFloat64()
	return t
}
