package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
)

// PlayerRepository defines what the app layer needs from the repository
type PlayerRepository interface {
	GetPlayer(ctx context.Context, sport, id string) (*models.Player, error)
	ListPlayersBySport(ctx context.Context, sport string) ([]models.Player, error)
	SavePlayer(ctx context.Context, p models.Player) error
}

// App handles player auction status changes
type App struct {
	repo PlayerRepository
	mu   sync.Mutex
}

// NewApp creates a new player App
func NewApp(repo PlayerRepository) *App {
	return &App{
		repo: repo,
	}
}

// GetPlayer retrieves a player by sport and ID
func (a *App) GetPlayer(ctx context.Context, sport, id string) (*models.Player, error) {
	p, err := a.repo.GetPlayer(ctx, sport, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// ListPlayersBySport retrieves all players of a sport
func (a *App) ListPlayersBySport(ctx context.Context, sport string) ([]models.Player, error) {
	players, err := a.repo.ListPlayersBySport(ctx, sport)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

// SavePlayer creates or replaces a player with validation
func (a *App) SavePlayer(ctx context.Context, p models.Player) error {
	if err := a.validatePlayer(p); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if p.Status == "" {
		p.Status = models.PlayerStatusAvailable
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.repo.SavePlayer(ctx, p)
}

// MarkUpNext flags the player as the lot being prepared
func (a *App) MarkUpNext(ctx context.Context, sport, id string) error {
	return a.update(ctx, sport, id, func(p *models.Player) {
		p.Status = models.PlayerStatusUpNext
		p.CurrentBid = p.BasePrice
	})
}

// MarkSold records the final sale of a player to a team
func (a *App) MarkSold(ctx context.Context, sport, id, teamID string, price float64) error {
	return a.update(ctx, sport, id, func(p *models.Player) {
		p.Status = models.PlayerStatusSold
		p.TeamID = teamID
		p.CurrentBid = price
		p.SoldPrice = &price
	})
}

// MarkUnsold records that nobody bought the player
func (a *App) MarkUnsold(ctx context.Context, sport, id string) error {
	return a.update(ctx, sport, id, func(p *models.Player) {
		p.Status = models.PlayerStatusUnsold
		p.TeamID = ""
		p.SoldPrice = nil
	})
}

// MarkAvailable puts the player back in the pool state
func (a *App) MarkAvailable(ctx context.Context, sport, id string) error {
	return a.update(ctx, sport, id, func(p *models.Player) {
		p.Status = models.PlayerStatusAvailable
		p.TeamID = ""
		p.SoldPrice = nil
		p.CurrentBid = p.BasePrice
	})
}

func (a *App) update(ctx context.Context, sport, id string, apply func(p *models.Player)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, err := a.repo.GetPlayer(ctx, sport, id)
	if err != nil {
		return fmt.Errorf("failed to get player: %w", err)
	}
	apply(p)
	if err := a.repo.SavePlayer(ctx, *p); err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	log.Debug().
		Str("player_id", id).
		Str("status", string(p.Status)).
		Msg("updated player status")
	return nil
}

func (a *App) validatePlayer(p models.Player) error {
	if p.ID == "" {
		return fmt.Errorf("player ID is required")
	}
	if p.Name == "" {
		return fmt.Errorf("player name is required")
	}
	if p.Sport == "" {
		return fmt.Errorf("sport is required")
	}
	if p.BasePrice < 0 {
		return fmt.Errorf("base price cannot be negative")
	}
	return nil
}
