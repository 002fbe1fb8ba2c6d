package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction/events"
	"github.com/rs/zerolog/log"
)

// App handles outbox business logic
type App struct {
	repo  Repository
	clock clockwork.Clock
}

// NewApp creates a new outbox App
func NewApp(repo Repository, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		repo:  repo,
		clock: clock,
	}
}

// InsertEvent writes a live auction event to the outbox
func (a *App) InsertEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte) error {
	if err := a.validateEvent(eventType, payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", eventType, err)
	}

	event := Event{
		ID:        uuid.New(),
		SessionID: sessionID,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: a.clock.Now(),
	}
	if err := a.repo.Insert(ctx, event); err != nil {
		return err
	}

	log.Debug().
		Str("session_id", sessionID.String()).
		Str("event_id", event.ID.String()).
		Str("event_type", eventType).
		Msg("outbox event inserted")

	return nil
}

// FetchUnsentEvents fetches unsent outbox events, oldest first
func (a *App) FetchUnsentEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	events, err := a.repo.FetchUnsent(ctx, limit)
	if err != nil {
		return nil, err
	}

	if len(events) > 0 {
		log.Debug().
			Int("count", len(events)).
			Msg("fetched unsent outbox events")
	}

	return events, nil
}

// GetEventByID fetches a specific outbox event by ID
func (a *App) GetEventByID(ctx context.Context, eventID uuid.UUID) (*Event, error) {
	return a.repo.FetchByID(ctx, eventID)
}

// MarkEventsSent marks outbox events as sent
func (a *App) MarkEventsSent(ctx context.Context, eventIDs []uuid.UUID) error {
	if len(eventIDs) == 0 {
		return nil
	}
	return a.repo.MarkSent(ctx, eventIDs, a.clock.Now())
}

// Pending returns the number of unsent events
func (a *App) Pending(ctx context.Context) (int, error) {
	return a.repo.CountUnsent(ctx)
}

// PurgeSent removes events that were sent more than retention ago
func (a *App) PurgeSent(ctx context.Context, retention time.Duration) (int, error) {
	return a.repo.PurgeSent(ctx, a.clock.Now().Add(-retention))
}

// validateEvent checks that the event type is known and its payload decodes
func (a *App) validateEvent(eventType string, payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("event payload cannot be empty")
	}
	if _, err := events.ParsePayload(events.EventType(eventType), payload); err != nil {
		return err
	}
	return nil
}
