package auctions

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/store"
)

// ErrNotFound is returned when an auction record does not exist
var ErrNotFound = errors.New("auction not found")

// Repository implements auction record access over the document store
type Repository struct {
	store store.DocumentStore
}

// NewRepository creates a new auction repository
func NewRepository(s store.DocumentStore) *Repository {
	return &Repository{
		store: s,
	}
}

// GetAuction retrieves an auction by sport and ID
func (r *Repository) GetAuction(ctx context.Context, sport, id string) (*models.Auction, error) {
	a, err := store.GetAs[models.Auction](ctx, r.store, collection(sport), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return a, nil
}

// ListAuctionsBySport retrieves all auctions of a sport
func (r *Repository) ListAuctionsBySport(ctx context.Context, sport string) ([]models.Auction, error) {
	list, err := store.ListAs[models.Auction](ctx, r.store, collection(sport))
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	return list, nil
}

// SaveAuction creates or replaces an auction record
func (r *Repository) SaveAuction(ctx context.Context, a models.Auction) error {
	if err := store.PutAs(ctx, r.store, collection(a.Sport), a.ID, a); err != nil {
		return fmt.Errorf("failed to save auction: %w", err)
	}
	return nil
}

func collection(sport string) store.Collection {
	return store.Collection{Sport: sport, Entity: "auctions"}
}
