package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL   string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel string        // Channel name to LISTEN on
	PingInterval  time.Duration
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel: NotifyChannel,
		PingInterval:  90 * time.Second,
	}
}

// Waker is woken on every notification
type Waker interface {
	Wake()
}

// Listener turns Postgres NOTIFY messages from the outbox trigger into
// worker wake-ups. The worker's own poll covers anything missed while the
// connection was down.
type Listener struct {
	listener *pq.Listener
	waker    Waker
	cfg      ListenerConfig
	clock    clockwork.Clock
}

func NewListener(waker Waker, cfg ListenerConfig, clock clockwork.Clock) (*Listener, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for notifications")

	return &Listener{
		listener: l,
		waker:    waker,
		cfg:      cfg,
		clock:    clock,
	}, nil
}

func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Msg("listener started")

	pingTicker := l.clock.NewTicker(l.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			// nil means the connection was re-established; anything sent in
			// between is still unsent, so wake either way
			if note != nil {
				log.Debug().Str("event_id", note.Extra).Msg("outbox notification")
			}
			l.waker.Wake()
		case <-pingTicker.Chan():
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	return l.listener.Close()
}
