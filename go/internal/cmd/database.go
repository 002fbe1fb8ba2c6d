package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionhouse/go/internal/config"
	"github.com/mcdev12/auctionhouse/go/internal/outbox"
	"github.com/mcdev12/auctionhouse/go/internal/store"
)

// storeBackend is the persistence selected by config
type storeBackend struct {
	Documents store.DocumentStore
	Outbox    outbox.Repository
	// DSN is set for the postgres backend so the outbox listener can
	// LISTEN on its own connection
	DSN string

	pool *pgxpool.Pool
	db   *sql.DB
}

func (b *storeBackend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.db != nil {
		b.db.Close()
	}
}

func setupStore(ctx context.Context, cfg *config.Config) (*storeBackend, error) {
	switch cfg.Store.Backend {
	case "postgres":
		return setupPostgres(ctx, cfg)
	default:
		fs, err := store.NewFileStore(cfg.Store.DataDir)
		if err != nil {
			return nil, err
		}
		log.Info().Str("data_dir", cfg.Store.DataDir).Msg("using file store")
		return &storeBackend{
			Documents: fs,
			Outbox:    outbox.NewDocumentRepository(fs),
		}, nil
	}
}

func setupPostgres(ctx context.Context, cfg *config.Config) (*storeBackend, error) {
	dsn := cfg.DSN()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database, err := sql.Open("postgres", dsn)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	b := &storeBackend{pool: pool, db: database, DSN: dsn}

	docs := store.NewPostgresStore(pool)
	if err := docs.EnsureSchema(ctx); err != nil {
		b.Close()
		return nil, err
	}
	outboxRepo := outbox.NewSQLRepository(database)
	if err := outboxRepo.EnsureSchema(ctx); err != nil {
		b.Close()
		return nil, err
	}
	b.Documents = docs
	b.Outbox = outboxRepo

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Name).
		Msg("connected to database")
	return b, nil
}
