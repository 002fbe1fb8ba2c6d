package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// LedgerState defines the state of the lot currently under the hammer.
type LedgerState string

const (
	LedgerStateReady  LedgerState = "READY"
	LedgerStateLive   LedgerState = "LIVE"
	LedgerStatePaused LedgerState = "PAUSED"
	LedgerStateSold   LedgerState = "SOLD"
	LedgerStateUnsold LedgerState = "UNSOLD"
)

// Active reports whether the lot is still open (not sold or unsold).
func (s LedgerState) Active() bool {
	return s == LedgerStateReady || s == LedgerStateLive || s == LedgerStatePaused
}

// BidKind distinguishes slab-stepped bids from jump bids.
type BidKind string

const (
	BidKindStep BidKind = "BID"
	BidKindJump BidKind = "JUMP"
)

// BidEntry is one accepted bid. Entries are never modified once recorded.
type BidEntry struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"teamId"`
	TeamName  string    `json:"teamName"`
	BidAmount float64   `json:"bidAmount"`
	Kind      BidKind   `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// HighestBidder identifies the team currently leading a lot
type HighestBidder struct {
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
}

// TempAuctionLedger is the published snapshot of the lot under the hammer.
type TempAuctionLedger struct {
	State           LedgerState    `json:"state"`
	PlayerID        string         `json:"playerId"`
	PlayerName      string         `json:"playerName"`
	BasePrice       float64        `json:"basePrice"`
	CurrentBid      float64        `json:"currentBid"`
	HighestBidder   *HighestBidder `json:"highestBidder"`
	BidHistory      []BidEntry     `json:"bidHistory"`
	TimerStartedAt  *time.Time     `json:"timerStartedAt"`
	TimerDuration   int            `json:"timerDuration"`
	PausedRemaining *float64       `json:"pausedRemaining,omitempty"`
	TimeRemaining   int            `json:"timeRemaining"`
	BidSlabs        []BidSlab      `json:"bidSlabs"`
}

// RemainingAt calculates the whole seconds left on the bid timer at now,
// rounding up the same way viewer clients do.
func (l *TempAuctionLedger) RemainingAt(now time.Time) int {
	switch l.State {
	case LedgerStateReady:
		return l.TimerDuration
	case LedgerStatePaused:
		if l.PausedRemaining == nil {
			return 0
		}
		return int(math.Ceil(*l.PausedRemaining))
	case LedgerStateLive:
		if l.TimerStartedAt == nil {
			return l.TimerDuration
		}
		elapsed := now.Sub(*l.TimerStartedAt).Seconds()
		return int(math.Ceil(math.Max(0, float64(l.TimerDuration)-elapsed)))
	default:
		return 0
	}
}

// LiveAuctionSession is an auctioneer's running auction.
type LiveAuctionSession struct {
	ID                 uuid.UUID `json:"id"`
	AuctionID          string    `json:"auctionId"`
	Sport              string    `json:"sport"`
	Name               string    `json:"name"`
	AuctioneerID       string    `json:"auctioneerId"`
	AuctioneerName     string    `json:"auctioneerName"`
	TeamIDs            []string  `json:"teamIds"`
	PlayerPool         []string  `json:"playerPool"`
	CompletedPlayerIDs []string  `json:"completedPlayerIds"`
	BidSlabs           []BidSlab `json:"bidSlabs"`
	TimerDuration      int       `json:"timerDuration"`
	CurrentPlayerID    string    `json:"currentPlayerId,omitempty"`
	StartedAt          time.Time `json:"startedAt"`
}

// HasTeam reports whether the team participates in the session
func (s *LiveAuctionSession) HasTeam(teamID string) bool {
	for _, id := range s.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// InPool reports whether the player is still waiting to be auctioned
func (s *LiveAuctionSession) InPool(playerID string) bool {
	for _, id := range s.PlayerPool {
		if id == playerID {
			return true
		}
	}
	return false
}
