package liveauction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/store"
)

var sessionsCollection = store.Collection{Sport: store.Global, Entity: "auction-ledgers"}

// SessionRecord is the persisted form of a running session
type SessionRecord struct {
	ID        string                    `json:"id"`
	Session   models.LiveAuctionSession `json:"session"`
	Ledger    *models.TempAuctionLedger `json:"ledger"`
	Results   []models.PlayerResult     `json:"results"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

// DocumentSessionStore keeps session records in the document store
type DocumentSessionStore struct {
	store store.DocumentStore
}

// NewDocumentSessionStore creates a session store over s
func NewDocumentSessionStore(s store.DocumentStore) *DocumentSessionStore {
	return &DocumentSessionStore{store: s}
}

func (d *DocumentSessionStore) SaveSession(ctx context.Context, rec SessionRecord) error {
	if err := store.PutAs(ctx, d.store, sessionsCollection, rec.ID, rec); err != nil {
		return fmt.Errorf("failed to save session record: %w", err)
	}
	return nil
}

func (d *DocumentSessionStore) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	err := d.store.Delete(ctx, sessionsCollection, sessionID.String())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to delete session record: %w", err)
	}
	return nil
}

// ListSessions returns every persisted session record
func (d *DocumentSessionStore) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	recs, err := store.ListAs[SessionRecord](ctx, d.store, sessionsCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list session records: %w", err)
	}
	return recs, nil
}

// PurgeSessions removes records left behind by a previous process.
// Sessions live in memory and are not resumed after a restart.
func (d *DocumentSessionStore) PurgeSessions(ctx context.Context) (int, error) {
	recs, err := d.ListSessions(ctx)
	if err != nil {
		return 0, err
	}
	for _, rec := range recs {
		if err := d.store.Delete(ctx, sessionsCollection, rec.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("failed to purge session record %s: %w", rec.ID, err)
		}
	}
	return len(recs), nil
}
