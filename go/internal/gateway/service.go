package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/history"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction"
	"github.com/rs/zerolog/log"
)

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
	// ConsumeEvents subscribes to the JetStream auction stream. It needs
	// the outbox relay publishing to NATS.
	ConsumeEvents  bool
	AllowedOrigins []string
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

// Deps are the application services the gateway exposes
type Deps struct {
	Auctions *liveauction.App
	History  *history.App
	Teams    TeamReader
	Players  PlayerReader
	Clock    clockwork.Clock
}

// Service is the HTTP and WebSocket surface of the live auction
type Service struct {
	config            Config
	connectionManager *ConnectionManager
	liveHandler       *LiveAuctionHandler
	historyHandler    *HistoryHandler
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
}

// NewService creates the gateway. The returned service's connection
// manager should be registered as the session controller's notifier.
func NewService(config Config, deps Deps) (*Service, error) {
	cm := NewConnectionManager(config.ConnectionConfig, deps.Auctions, deps.Clock)

	s := &Service{
		config:            config,
		connectionManager: cm,
		liveHandler:       NewLiveAuctionHandler(deps.Auctions, deps.Teams, deps.Players, deps.Clock),
		historyHandler:    NewHistoryHandler(deps.History, deps.Auctions),
		wsHandler:         NewWebSocketHandler(cm, deps.Auctions),
	}

	if config.ConsumeEvents {
		consumer, err := NewEventConsumer(cm, config.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = consumer
	}

	return s, nil
}

// ConnectionManager returns the WebSocket push manager
func (s *Service) ConnectionManager() *ConnectionManager {
	return s.connectionManager
}

// RegisterRoutes registers every gateway route on r
func (s *Service) RegisterRoutes(r *mux.Router) {
	s.liveHandler.RegisterRoutes(r)
	s.historyHandler.RegisterRoutes(r)
	s.wsHandler.RegisterRoutes(r)
}

// Handler returns the gateway routes wrapped in CORS
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	return CORSMiddleware(s.config.AllowedOrigins)(r)
}

// Start runs the push loop and, when enabled, the event consumer. It
// returns when ctx is done.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("consume_events", s.eventConsumer != nil).Msg("starting live auction gateway")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()
	return nil
}

// Stop releases the event consumer connection
func (s *Service) Stop() error {
	log.Info().Msg("stopping live auction gateway")
	if s.eventConsumer != nil {
		return s.eventConsumer.Stop()
	}
	return nil
}
