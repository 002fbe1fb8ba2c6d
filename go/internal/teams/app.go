package teams

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ErrInsufficientPurse is returned when a team cannot afford a purchase
var ErrInsufficientPurse = errors.New("insufficient purse")

// TeamsRepository defines what the app layer needs from the repository
type TeamsRepository interface {
	GetTeam(ctx context.Context, sport, id string) (*models.Team, error)
	ListTeamsBySport(ctx context.Context, sport string) ([]models.Team, error)
	SaveTeam(ctx context.Context, team models.Team) error
}

// App handles team purse and roster rules
type App struct {
	repo TeamsRepository

	// serializes read-modify-write of purses
	mu sync.Mutex
}

// NewApp creates a new teams App
func NewApp(repo TeamsRepository) *App {
	return &App{
		repo: repo,
	}
}

// GetTeam retrieves a team by sport and ID
func (a *App) GetTeam(ctx context.Context, sport, id string) (*models.Team, error) {
	team, err := a.repo.GetTeam(ctx, sport, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// GetTeams retrieves the given teams in order
func (a *App) GetTeams(ctx context.Context, sport string, ids []string) ([]models.Team, error) {
	teams := make([]models.Team, 0, len(ids))
	for _, id := range ids {
		team, err := a.GetTeam(ctx, sport, id)
		if err != nil {
			return nil, err
		}
		teams = append(teams, *team)
	}
	return teams, nil
}

// ListTeamsBySport retrieves all teams for a sport
func (a *App) ListTeamsBySport(ctx context.Context, sport string) ([]models.Team, error) {
	teams, err := a.repo.ListTeamsBySport(ctx, sport)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams by sport: %w", err)
	}
	return teams, nil
}

// SaveTeam creates or replaces a team with validation
func (a *App) SaveTeam(ctx context.Context, team models.Team) error {
	if err := a.validateTeam(team); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.repo.SaveTeam(ctx, team)
}

// RecordPurchase deducts amount from the team's purse and adds the player
// to its roster.
func (a *App) RecordPurchase(ctx context.Context, sport, teamID, playerID string, amount float64) (*models.Team, error) {
	if amount < 0 {
		return nil, fmt.Errorf("validation failed: purchase amount cannot be negative")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	team, err := a.repo.GetTeam(ctx, sport, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	if team.PurseRemaining < amount {
		return nil, fmt.Errorf("%w: team %s cannot afford %.2f with %.2f remaining", ErrInsufficientPurse, teamID, amount, team.PurseRemaining)
	}
	if team.HasPlayer(playerID) {
		return nil, fmt.Errorf("player %s is already on team %s", playerID, teamID)
	}

	team.PurseRemaining = sub(team.PurseRemaining, amount)
	team.PlayerIDs = append(team.PlayerIDs, playerID)
	if err := a.repo.SaveTeam(ctx, *team); err != nil {
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	log.Info().
		Str("team_id", teamID).
		Str("player_id", playerID).
		Float64("amount", amount).
		Float64("purse_remaining", team.PurseRemaining).
		Msg("recorded purchase")
	return team, nil
}

// RevertPurchase undoes RecordPurchase
func (a *App) RevertPurchase(ctx context.Context, sport, teamID, playerID string, amount float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	team, err := a.repo.GetTeam(ctx, sport, teamID)
	if err != nil {
		return fmt.Errorf("failed to get team: %w", err)
	}
	if !team.HasPlayer(playerID) {
		return nil
	}

	kept := team.PlayerIDs[:0]
	for _, id := range team.PlayerIDs {
		if id != playerID {
			kept = append(kept, id)
		}
	}
	team.PlayerIDs = kept
	team.PurseRemaining = decimal.NewFromFloat(team.PurseRemaining).Add(decimal.NewFromFloat(amount)).Round(2).InexactFloat64()
	if err := a.repo.SaveTeam(ctx, *team); err != nil {
		return fmt.Errorf("failed to revert purchase: %w", err)
	}

	log.Warn().
		Str("team_id", teamID).
		Str("player_id", playerID).
		Float64("amount", amount).
		Msg("reverted purchase")
	return nil
}

func (a *App) validateTeam(team models.Team) error {
	if team.ID == "" {
		return fmt.Errorf("team ID is required")
	}
	if team.Name == "" {
		return fmt.Errorf("team name is required")
	}
	if team.Sport == "" {
		return fmt.Errorf("sport is required")
	}
	if team.TotalPurse < 0 || team.PurseRemaining < 0 {
		return fmt.Errorf("purse cannot be negative")
	}
	if team.PurseRemaining > team.TotalPurse {
		return fmt.Errorf("purse remaining cannot exceed total purse")
	}
	return nil
}

func sub(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}
