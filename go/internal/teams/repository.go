package teams

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/store"
)

// ErrNotFound is returned when a team does not exist
var ErrNotFound = errors.New("team not found")

const entity = "teams"

// Repository implements team data access over the document store
type Repository struct {
	store store.DocumentStore
}

// NewRepository creates a new teams repository
func NewRepository(s store.DocumentStore) *Repository {
	return &Repository{
		store: s,
	}
}

// GetTeam retrieves a team by sport and ID
func (r *Repository) GetTeam(ctx context.Context, sport, id string) (*models.Team, error) {
	team, err := store.GetAs[models.Team](ctx, r.store, collection(sport), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// ListTeamsBySport retrieves all teams for a sport
func (r *Repository) ListTeamsBySport(ctx context.Context, sport string) ([]models.Team, error) {
	teams, err := store.ListAs[models.Team](ctx, r.store, collection(sport))
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// SaveTeam creates or replaces a team
func (r *Repository) SaveTeam(ctx context.Context, team models.Team) error {
	if team.PlayerIDs == nil {
		team.PlayerIDs = []string{}
	}
	if err := store.PutAs(ctx, r.store, collection(team.Sport), team.ID, team); err != nil {
		return fmt.Errorf("failed to save team: %w", err)
	}
	return nil
}

func collection(sport string) store.Collection {
	return store.Collection{Sport: sport, Entity: entity}
}
