package liveauction

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

// TeamsApp is the team store as seen by the session controller
type TeamsApp interface {
	GetTeam(ctx context.Context, sport, id string) (*models.Team, error)
	RecordPurchase(ctx context.Context, sport, teamID, playerID string, amount float64) (*models.Team, error)
	RevertPurchase(ctx context.Context, sport, teamID, playerID string, amount float64) error
}

// PlayersApp is the player store as seen by the session controller
type PlayersApp interface {
	GetPlayer(ctx context.Context, sport, id string) (*models.Player, error)
	MarkUpNext(ctx context.Context, sport, id string) error
	MarkSold(ctx context.Context, sport, id, teamID string, price float64) error
	MarkUnsold(ctx context.Context, sport, id string) error
	MarkAvailable(ctx context.Context, sport, id string) error
}

// AuctionsApp updates the admin-created auction record a session runs
type AuctionsApp interface {
	GetAuction(ctx context.Context, sport, id string) (*models.Auction, error)
	MarkLive(ctx context.Context, sport, id string) error
	MarkCompleted(ctx context.Context, sport, id string) error
}

// HistoryApp archives actions and completed auctions
type HistoryApp interface {
	LogAction(ctx context.Context, action models.HistoryAction, details map[string]interface{}) error
	RecordResult(ctx context.Context, result models.AuctionResult) error
}

// OutboxApp records domain events for relay
type OutboxApp interface {
	InsertEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte) error
}

// Notifier is told after every committed change to a session
type Notifier interface {
	Notify(sessionID uuid.UUID)
}

// Notifiers fans a notification out to every registered notifier.
// Notifiers may be added after the App is built.
type Notifiers struct {
	mu   sync.RWMutex
	list []Notifier
}

// Add registers n
func (ns *Notifiers) Add(n Notifier) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.list = append(ns.list, n)
}

func (ns *Notifiers) Notify(sessionID uuid.UUID) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	for _, n := range ns.list {
		n.Notify(sessionID)
	}
}

// SportDefaults supplies per-sport slab tables and timers
type SportDefaults interface {
	DefaultBidSlabs(sport string) []models.BidSlab
	DefaultTimerSeconds(sport string) int
}

// SessionStore persists the working record of running sessions
type SessionStore interface {
	SaveSession(ctx context.Context, rec SessionRecord) error
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
}
