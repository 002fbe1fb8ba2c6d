package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/auctionhouse/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

// NotifyChannel is the Postgres channel the outbox trigger notifies on
const NotifyChannel = "live_auction_outbox_events"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS live_auction_outbox (
		id         UUID        PRIMARY KEY,
		session_id UUID        NOT NULL,
		event_type TEXT        NOT NULL,
		payload    JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		sent_at    TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS live_auction_outbox_unsent_idx
		ON live_auction_outbox (created_at) WHERE sent_at IS NULL`,
	`CREATE OR REPLACE FUNCTION notify_live_auction_outbox() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify('` + NotifyChannel + `', NEW.id::text);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS live_auction_outbox_notify ON live_auction_outbox`,
	`CREATE TRIGGER live_auction_outbox_notify
		AFTER INSERT ON live_auction_outbox
		FOR EACH ROW EXECUTE FUNCTION notify_live_auction_outbox()`,
}

// SQLRepository keeps the outbox in a Postgres table whose insert trigger
// notifies the relay listener.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository wraps an open database
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// EnsureSchema creates the outbox table and its notify trigger
func (r *SQLRepository) EnsureSchema(ctx context.Context) error {
	if err := sqlutil.ExecAll(ctx, r.db, schema...); err != nil {
		return fmt.Errorf("failed to create outbox schema: %w", err)
	}
	return nil
}

func (r *SQLRepository) Insert(ctx context.Context, event Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO live_auction_outbox (id, session_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.SessionID, event.EventType,
		sqlutil.ToNullRawMessage(event.Payload), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", event.EventType, err)
	}
	return nil
}

func (r *SQLRepository) FetchUnsent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, event_type, payload, created_at, sent_at
		FROM live_auction_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox events: %w", err)
	}
	return events, nil
}

func (r *SQLRepository) FetchByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, event_type, payload, created_at, sent_at
		FROM live_auction_outbox
		WHERE id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

func (r *SQLRepository) MarkSent(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE live_auction_outbox SET sent_at = $1
		WHERE id = ANY($2::uuid[]) AND sent_at IS NULL`,
		at, pq.Array(strs))
	if err != nil {
		return fmt.Errorf("failed to mark outbox events as sent: %w", err)
	}
	return nil
}

func (r *SQLRepository) CountUnsent(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM live_auction_outbox WHERE sent_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsent outbox events: %w", err)
	}
	return count, nil
}

func (r *SQLRepository) PurgeSent(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM live_auction_outbox WHERE sent_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sent outbox events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(s scanner) (*Event, error) {
	var (
		e       Event
		payload pqtype.NullRawMessage
		sentAt  sql.NullTime
	)
	if err := s.Scan(&e.ID, &e.SessionID, &e.EventType, &payload, &e.CreatedAt, &sentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan outbox event: %w", err)
	}
	e.Payload = sqlutil.FromNullRawMessage(payload)
	e.SentAt = sqlutil.FromSqlTime(sentAt)
	return &e, nil
}
