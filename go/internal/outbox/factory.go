package outbox

import (
	"fmt"
	"io"

	"github.com/mcdev12/auctionhouse/go/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewPublisher builds the publisher named by the outbox config. The
// returned closer releases any broker connection.
func NewPublisher(cfg *config.Config) (Publisher, io.Closer, error) {
	switch cfg.Outbox.Publisher {
	case "nats":
		jsCfg := DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATS.URL
		if cfg.NATS.Stream != "" {
			jsCfg.StreamName = cfg.NATS.Stream
		}
		if cfg.NATS.Subject != "" {
			jsCfg.SubjectPrefix = cfg.NATS.Subject
		}
		p, err := NewJetStreamPublisher(jsCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("create JetStream publisher: %w", err)
		}
		return p, p, nil
	case "rabbitmq":
		p, err := NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return nil, nil, fmt.Errorf("create RabbitMQ publisher: %w", err)
		}
		return p, p, nil
	case "log", "":
		return NewLogPublisher(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown outbox publisher %q", cfg.Outbox.Publisher)
	}
}

// WorkerConfig derives the worker settings from the service config
func WorkerConfig(cfg *config.Config) Config {
	wc := DefaultConfig()
	if d := cfg.OutboxPollInterval(); d > 0 {
		wc.PollInterval = d
	}
	if cfg.Outbox.BatchSize > 0 {
		wc.BatchSize = cfg.Outbox.BatchSize
	}
	if cfg.Outbox.MaxRetries >= 0 {
		wc.MaxRetries = cfg.Outbox.MaxRetries
	}
	return wc
}
