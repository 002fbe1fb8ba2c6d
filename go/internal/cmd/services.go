package main

import (
	"context"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionhouse/go/internal/auctions"
	"github.com/mcdev12/auctionhouse/go/internal/config"
	"github.com/mcdev12/auctionhouse/go/internal/gateway"
	"github.com/mcdev12/auctionhouse/go/internal/history"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction/ledger"
	"github.com/mcdev12/auctionhouse/go/internal/outbox"
	"github.com/mcdev12/auctionhouse/go/internal/player"
	"github.com/mcdev12/auctionhouse/go/internal/sports/catalog"
	"github.com/mcdev12/auctionhouse/go/internal/teams"
)

type Services struct {
	Auctions *liveauction.App
	History  *history.App
	Gateway  *gateway.Service
	Outbox   *outbox.App

	worker    *outbox.Worker
	listener  *outbox.Listener
	health    *outbox.HealthChecker
	publisher io.Closer
}

func setupServices(ctx context.Context, cfg *config.Config, backend *storeBackend) (*Services, error) {
	// Store → Repository → App, then the session controller over the apps
	clock := clockwork.NewRealClock()

	sports, err := catalog.Enable(cfg.Sports.EnabledPlugins)
	if err != nil {
		return nil, err
	}
	log.Info().Strs("sports", sports.Sports()).Msg("sport plugins enabled")

	teamsApp := teams.NewApp(teams.NewRepository(backend.Documents))
	playerApp := player.NewApp(player.NewRepository(backend.Documents))
	auctionsApp := auctions.NewApp(auctions.NewRepository(backend.Documents), clock)
	historyApp := history.NewApp(history.NewRepository(backend.Documents), clock)

	sessions := liveauction.NewDocumentSessionStore(backend.Documents)
	if n, err := sessions.PurgeSessions(ctx); err != nil {
		return nil, err
	} else if n > 0 {
		log.Warn().Int("count", n).Msg("discarded sessions left by a previous run")
	}

	s := &Services{History: historyApp}
	notifiers := &liveauction.Notifiers{}

	deps := liveauction.Deps{
		Teams:    teamsApp,
		Players:  playerApp,
		Auctions: auctionsApp,
		History:  historyApp,
		Notifier: notifiers,
		Sports:   sports,
		Sessions: sessions,
		Clock:    clock,
	}

	if cfg.Outbox.Enabled {
		if err := s.setupOutbox(cfg, backend, clock); err != nil {
			return nil, err
		}
		deps.Outbox = s.Outbox
		notifiers.Add(s.worker)
	}

	s.Auctions = liveauction.NewApp(deps, liveauction.Config{
		DefaultTimer: cfg.DefaultTimer(),
		JumpPolicy:   ledger.JumpPolicy(cfg.Auction.JumpPolicy),
	})

	gwCfg := gateway.DefaultConfig()
	gwCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	gwCfg.ConsumeEvents = cfg.Outbox.Enabled && cfg.Outbox.Publisher == "nats"
	gwCfg.JetStreamConfig.URL = cfg.NATS.URL
	if cfg.NATS.Stream != "" {
		gwCfg.JetStreamConfig.StreamName = cfg.NATS.Stream
	}
	if cfg.NATS.Subject != "" {
		gwCfg.JetStreamConfig.SubjectFilter = cfg.NATS.Subject + ".>"
	}

	s.Gateway, err = gateway.NewService(gwCfg, gateway.Deps{
		Auctions: s.Auctions,
		History:  historyApp,
		Teams:    teamsApp,
		Players:  playerApp,
		Clock:    clock,
	})
	if err != nil {
		s.closePublisher()
		return nil, err
	}
	notifiers.Add(s.Gateway.ConnectionManager())

	return s, nil
}

func (s *Services) setupOutbox(cfg *config.Config, backend *storeBackend, clock clockwork.Clock) error {
	publisher, closer, err := outbox.NewPublisher(cfg)
	if err != nil {
		return err
	}
	s.publisher = closer
	s.Outbox = outbox.NewApp(backend.Outbox, clock)
	s.worker = outbox.NewWorker(s.Outbox, publisher, outbox.NewPrometheusMetrics(), outbox.WorkerConfig(cfg), clock)
	s.health = outbox.NewHealthChecker(s.Outbox, s.worker, publisher, clock, 5*time.Minute)

	if backend.DSN != "" {
		lc := outbox.DefaultListenerConfig()
		lc.DatabaseURL = backend.DSN
		listener, err := outbox.NewListener(s.worker, lc, clock)
		if err != nil {
			// polling still delivers, only later
			log.Warn().Err(err).Msg("outbox listener unavailable, relying on polling")
		} else {
			s.listener = listener
		}
	}

	log.Info().Str("publisher", cfg.Outbox.Publisher).Msg("outbox relay configured")
	return nil
}

// Start launches the background loops. They stop when ctx is done.
func (s *Services) Start(ctx context.Context) {
	if s.worker != nil {
		if err := s.worker.Start(ctx); err != nil {
			log.Error().Err(err).Msg("failed to start outbox worker")
		}
	}
	if s.listener != nil {
		go func() {
			if err := s.listener.Start(ctx); err != nil {
				log.Error().Err(err).Msg("outbox listener stopped")
			}
		}()
	}
	go func() {
		if err := s.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway stopped")
		}
	}()
}

func (s *Services) Stop() {
	s.Auctions.Close()
	if err := s.Gateway.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop gateway")
	}
	if s.listener != nil {
		if err := s.listener.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop outbox listener")
		}
	}
	if s.worker != nil {
		if err := s.worker.Stop(); err != nil {
			log.Debug().Err(err).Msg("outbox worker already stopped")
		}
	}
	s.closePublisher()
}

func (s *Services) closePublisher() {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close outbox publisher")
	}
}
