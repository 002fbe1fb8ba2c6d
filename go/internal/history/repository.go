package history

import (
	"context"
	"fmt"

	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/store"
)

var (
	actionsCollection = store.Collection{Sport: store.Global, Entity: "history"}
	resultsCollection = store.Collection{Sport: store.Global, Entity: "auction-history"}
)

// Repository implements history persistence over the document store
type Repository struct {
	store store.DocumentStore
}

// NewRepository creates a new history repository
func NewRepository(s store.DocumentStore) *Repository {
	return &Repository{
		store: s,
	}
}

// AppendAction stores an action log entry
func (r *Repository) AppendAction(ctx context.Context, entry models.HistoryEntry) error {
	if err := store.PutAs(ctx, r.store, actionsCollection, entry.ID, entry); err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// ListActions retrieves every action log entry
func (r *Repository) ListActions(ctx context.Context) ([]models.HistoryEntry, error) {
	entries, err := store.ListAs[models.HistoryEntry](ctx, r.store, actionsCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list history entries: %w", err)
	}
	return entries, nil
}

// SaveResult stores a completed auction result
func (r *Repository) SaveResult(ctx context.Context, result models.AuctionResult) error {
	if err := store.PutAs(ctx, r.store, resultsCollection, result.ID, result); err != nil {
		return fmt.Errorf("failed to save auction result: %w", err)
	}
	return nil
}

// ListResults retrieves every completed auction result
func (r *Repository) ListResults(ctx context.Context) ([]models.AuctionResult, error) {
	results, err := store.ListAs[models.AuctionResult](ctx, r.store, resultsCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list auction results: %w", err)
	}
	return results, nil
}
