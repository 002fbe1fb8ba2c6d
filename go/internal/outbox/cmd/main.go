// Command outbox relays live auction events from the Postgres outbox
// table to the configured broker.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionhouse/go/internal/config"
	"github.com/mcdev12/auctionhouse/go/internal/outbox"
)

func main() {
	// load .env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// configure zerolog console output and level
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	cfg, err := config.Load(getEnv("CONFIG_FILE", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	// DB config
	dsn := cfg.DSN()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}
	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Name).
		Msg("connected to database")

	// signal‐aware context
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := outbox.NewSQLRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure outbox schema")
	}
	app := outbox.NewApp(repo, nil)

	publisher, closer, err := outbox.NewPublisher(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create publisher")
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Error().Err(err).Msg("close publisher")
		}
	}()

	worker := outbox.NewWorker(app, publisher, outbox.NewPrometheusMetrics(), outbox.WorkerConfig(cfg), nil)
	if err := worker.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start worker")
	}

	ltCfg := outbox.DefaultListenerConfig()
	ltCfg.DatabaseURL = dsn
	listener, err := outbox.NewListener(worker, ltCfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("create outbox listener")
	}
	go func() {
		if err := listener.Start(ctx); err != nil {
			log.Error().Err(err).Msg("listener stopped")
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/health", outbox.NewHealthChecker(app, worker, publisher, nil, time.Minute))
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + getEnv("OUTBOX_HTTP_PORT", "9091"), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server failed")
		}
	}()

	log.Info().Str("publisher", cfg.Outbox.Publisher).Msg("outbox relay running")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server shutdown")
	}
	if err := worker.Stop(); err != nil {
		log.Error().Err(err).Msg("stop worker")
	}
	log.Info().Msg("outbox relay stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
