package auctions

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
)

// AuctionsRepository defines what the app layer needs from the repository
type AuctionsRepository interface {
	GetAuction(ctx context.Context, sport, id string) (*models.Auction, error)
	ListAuctionsBySport(ctx context.Context, sport string) ([]models.Auction, error)
	SaveAuction(ctx context.Context, a models.Auction) error
}

// App manages auction record lifecycle status
type App struct {
	repo  AuctionsRepository
	clock clockwork.Clock
	mu    sync.Mutex
}

// NewApp creates a new auctions App
func NewApp(repo AuctionsRepository, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		repo:  repo,
		clock: clock,
	}
}

// GetAuction retrieves an auction record
func (a *App) GetAuction(ctx context.Context, sport, id string) (*models.Auction, error) {
	auction, err := a.repo.GetAuction(ctx, sport, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return auction, nil
}

// ListAuctions retrieves the auctions of each sport, skipping sports with none
func (a *App) ListAuctions(ctx context.Context, sports []string) ([]models.Auction, error) {
	var all []models.Auction
	for _, sport := range sports {
		list, err := a.repo.ListAuctionsBySport(ctx, sport)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s auctions: %w", sport, err)
		}
		all = append(all, list...)
	}
	return all, nil
}

// AssignedTo returns the auctions of the given sports assigned to an auctioneer
func (a *App) AssignedTo(ctx context.Context, sports []string, auctioneerID string) ([]models.Auction, error) {
	all, err := a.ListAuctions(ctx, sports)
	if err != nil {
		return nil, err
	}
	var out []models.Auction
	for _, auction := range all {
		if auction.AssignedAuctioneer == auctioneerID {
			out = append(out, auction)
		}
	}
	return out, nil
}

// SaveAuction stores an auction record. A record with an auctioneer, teams
// and a player pool is promoted from CREATED to READY.
func (a *App) SaveAuction(ctx context.Context, auction models.Auction) error {
	if err := a.validateAuction(auction); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if auction.Status == "" {
		auction.Status = models.AuctionStatusCreated
	}
	if auction.Status == models.AuctionStatusCreated &&
		auction.AssignedAuctioneer != "" &&
		len(auction.TeamIDs) > 0 &&
		len(auction.PlayerPool) > 0 {
		auction.Status = models.AuctionStatusReady
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.repo.SaveAuction(ctx, auction)
}

// MarkLive flags the auction as running
func (a *App) MarkLive(ctx context.Context, sport, id string) error {
	return a.UpdateStatus(ctx, sport, id, models.AuctionStatusLive)
}

// MarkCompleted flags the auction as finished
func (a *App) MarkCompleted(ctx context.Context, sport, id string) error {
	return a.UpdateStatus(ctx, sport, id, models.AuctionStatusCompleted)
}

// UpdateStatus moves an auction record forward in its lifecycle
func (a *App) UpdateStatus(ctx context.Context, sport, id string, status models.AuctionStatus) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	auction, err := a.repo.GetAuction(ctx, sport, id)
	if err != nil {
		return fmt.Errorf("failed to get auction: %w", err)
	}
	if err := validateTransition(auction.Status, status); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := a.clock.Now().UTC()
	auction.Status = status
	switch status {
	case models.AuctionStatusLive:
		auction.StartedAt = &now
		auction.CompletedAt = nil
	case models.AuctionStatusCompleted:
		auction.CompletedAt = &now
	}
	if err := a.repo.SaveAuction(ctx, *auction); err != nil {
		return fmt.Errorf("failed to update auction status: %w", err)
	}

	log.Info().
		Str("auction_id", id).
		Str("sport", sport).
		Str("status", string(status)).
		Msg("auction status updated")
	return nil
}

func validateTransition(from, to models.AuctionStatus) error {
	switch to {
	case models.AuctionStatusLive:
		if from == models.AuctionStatusCompleted {
			return fmt.Errorf("auction already completed")
		}
	case models.AuctionStatusCompleted:
		if from != models.AuctionStatusLive {
			return fmt.Errorf("cannot complete auction in status %s", from)
		}
	case models.AuctionStatusCreated, models.AuctionStatusReady:
		if from == models.AuctionStatusLive || from == models.AuctionStatusCompleted {
			return fmt.Errorf("cannot move auction from %s back to %s", from, to)
		}
	default:
		return fmt.Errorf("unknown auction status %q", to)
	}
	return nil
}

func (a *App) validateAuction(auction models.Auction) error {
	if auction.ID == "" {
		return fmt.Errorf("auction ID is required")
	}
	if auction.Sport == "" {
		return fmt.Errorf("sport is required")
	}
	if auction.Name == "" {
		return fmt.Errorf("auction name is required")
	}
	if auction.TimerDuration < 0 {
		return fmt.Errorf("timer duration cannot be negative")
	}
	return nil
}
