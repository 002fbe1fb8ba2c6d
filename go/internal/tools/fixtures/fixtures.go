// Package fixtures loads JSON seed snapshots and opens the configured
// document store for the seed tools.
package fixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/auctionhouse/go/internal/config"
	"github.com/mcdev12/auctionhouse/go/internal/store"
)

// Load reads a JSON array of T from path
func Load[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return items, nil
}

// OpenStore opens the backend named by cfg.Store.Backend. The returned
// func releases it.
func OpenStore(ctx context.Context, cfg *config.Config) (store.DocumentStore, func(), error) {
	if cfg.Store.Backend != "postgres" {
		fs, err := store.NewFileStore(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}
	pg := store.NewPostgresStore(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}

// Summary counts the outcome of a seed run
type Summary struct {
	Total    int
	Inserted int
	Skipped  int
	Errors   int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d total, %d inserted, %d skipped, %d errors", s.Total, s.Inserted, s.Skipped, s.Errors)
}
