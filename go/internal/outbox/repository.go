package outbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/store"
)

// ErrNotFound is returned when an outbox event does not exist
var ErrNotFound = errors.New("outbox event not found")

// Repository is the outbox table
type Repository interface {
	Insert(ctx context.Context, event Event) error
	FetchUnsent(ctx context.Context, limit int) ([]Event, error)
	FetchByID(ctx context.Context, id uuid.UUID) (*Event, error)
	MarkSent(ctx context.Context, ids []uuid.UUID, at time.Time) error
	CountUnsent(ctx context.Context) (int, error)
	PurgeSent(ctx context.Context, before time.Time) (int, error)
}

var outboxCollection = store.Collection{Sport: store.Global, Entity: "outbox"}

// DocumentRepository keeps the outbox in the document store. It backs the
// outbox when the service runs on the file store.
type DocumentRepository struct {
	store store.DocumentStore
}

// NewDocumentRepository creates an outbox over a document store
func NewDocumentRepository(s store.DocumentStore) *DocumentRepository {
	return &DocumentRepository{store: s}
}

func (r *DocumentRepository) Insert(ctx context.Context, event Event) error {
	if err := store.PutAs(ctx, r.store, outboxCollection, event.ID.String(), event); err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", event.EventType, err)
	}
	return nil
}

func (r *DocumentRepository) FetchUnsent(ctx context.Context, limit int) ([]Event, error) {
	all, err := store.ListAs[Event](ctx, r.store, outboxCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	unsent := make([]Event, 0, len(all))
	for _, e := range all {
		if e.SentAt == nil {
			unsent = append(unsent, e)
		}
	}
	sort.SliceStable(unsent, func(i, j int) bool {
		return unsent[i].CreatedAt.Before(unsent[j].CreatedAt)
	})
	if limit > 0 && len(unsent) > limit {
		unsent = unsent[:limit]
	}
	return unsent, nil
}

func (r *DocumentRepository) FetchByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	e, err := store.GetAs[Event](ctx, r.store, outboxCollection, id.String())
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox event by ID: %w", err)
	}
	return e, nil
}

func (r *DocumentRepository) MarkSent(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	for _, id := range ids {
		e, err := r.FetchByID(ctx, id)
		if err != nil {
			return err
		}
		sentAt := at
		e.SentAt = &sentAt
		if err := store.PutAs(ctx, r.store, outboxCollection, id.String(), e); err != nil {
			return fmt.Errorf("failed to mark outbox event as sent: %w", err)
		}
	}
	return nil
}

func (r *DocumentRepository) CountUnsent(ctx context.Context) (int, error) {
	unsent, err := r.FetchUnsent(ctx, 0)
	if err != nil {
		return 0, err
	}
	return len(unsent), nil
}

func (r *DocumentRepository) PurgeSent(ctx context.Context, before time.Time) (int, error) {
	all, err := store.ListAs[Event](ctx, r.store, outboxCollection)
	if err != nil {
		return 0, fmt.Errorf("failed to list outbox events: %w", err)
	}
	purged := 0
	for _, e := range all {
		if e.SentAt == nil || !e.SentAt.Before(before) {
			continue
		}
		if err := r.store.Delete(ctx, outboxCollection, e.ID.String()); err != nil && !errors.Is(err, store.ErrNotFound) {
			return purged, fmt.Errorf("failed to purge outbox event %s: %w", e.ID, err)
		}
		purged++
	}
	return purged, nil
}
