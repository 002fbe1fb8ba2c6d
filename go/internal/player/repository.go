package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/store"
)

// ErrNotFound is returned when a player does not exist
var ErrNotFound = errors.New("player not found")

// Repository implements player data access over the document store
type Repository struct {
	store store.DocumentStore
}

// NewRepository creates a new player repository
func NewRepository(s store.DocumentStore) *Repository {
	return &Repository{
		store: s,
	}
}

// GetPlayer retrieves a player by sport and ID
func (r *Repository) GetPlayer(ctx context.Context, sport, id string) (*models.Player, error) {
	p, err := store.GetAs[models.Player](ctx, r.store, collection(sport), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// ListPlayersBySport retrieves all players of a sport
func (r *Repository) ListPlayersBySport(ctx context.Context, sport string) ([]models.Player, error) {
	players, err := store.ListAs[models.Player](ctx, r.store, collection(sport))
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

// SavePlayer creates or replaces a player
func (r *Repository) SavePlayer(ctx context.Context, p models.Player) error {
	if err := store.PutAs(ctx, r.store, collection(p.Sport), p.ID, p); err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	return nil
}

func collection(sport string) store.Collection {
	return store.Collection{Sport: sport, Entity: "players"}
}
