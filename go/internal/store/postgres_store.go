package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
  sport      TEXT        NOT NULL,
  entity     TEXT        NOT NULL,
  id         TEXT        NOT NULL,
  body       JSONB       NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (sport, entity, id)
)`

// PostgresStore keeps documents as JSONB rows keyed by collection and id.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the documents table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, documentsSchema); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, c Collection) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT body FROM documents WHERE sport = $1 AND entity = $2 ORDER BY updated_at, id`,
		c.Sport, c.Entity)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c, err)
	}
	defer rows.Close()

	docs := []json.RawMessage{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c, err)
		}
		docs = append(docs, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", c, err)
	}
	return docs, nil
}

func (s *PostgresStore) Get(ctx context.Context, c Collection, id string) (json.RawMessage, error) {
	if err := validateKey(c, id); err != nil {
		return nil, err
	}
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM documents WHERE sport = $1 AND entity = $2 AND id = $3`,
		c.Sport, c.Entity, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, c, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", c, id, err)
	}
	return json.RawMessage(body), nil
}

func (s *PostgresStore) Put(ctx context.Context, c Collection, id string, doc json.RawMessage) error {
	if err := validateKey(c, id); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (sport, entity, id, body, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (sport, entity, id) DO UPDATE
		SET body = EXCLUDED.body, updated_at = now()`,
		c.Sport, c.Entity, id, []byte(doc))
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", c, id, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, c Collection, id string) error {
	if err := validateKey(c, id); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE sport = $1 AND entity = $2 AND id = $3`,
		c.Sport, c.Entity, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", c, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, c, id)
	}
	return nil
}
