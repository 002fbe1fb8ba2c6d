package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	RetryDelay   time.Duration
	// Retention is how long sent events are kept. Zero keeps them forever.
	Retention time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
		MaxRetries:   3,
		RetryDelay:   time.Second,
		Retention:    24 * time.Hour,
	}
}

// Stats is a point-in-time view of the worker for health checks
type Stats struct {
	Running       bool      `json:"running"`
	LastRun       time.Time `json:"lastRun"`
	LastPublished int       `json:"lastPublished"`
	LastError     string    `json:"lastError,omitempty"`
}

// Worker relays unsent outbox events to a Publisher
type Worker struct {
	app       *App
	publisher Publisher
	metrics   MetricsCollector
	config    Config
	clock     clockwork.Clock

	wake chan struct{}

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	stats    Stats
}

func NewWorker(app *App, publisher Publisher, metrics MetricsCollector, cfg Config, clock clockwork.Clock) *Worker {
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	return &Worker{
		app:       app,
		publisher: NewMetricPublisher(publisher, metrics),
		metrics:   metrics,
		config:    cfg,
		clock:     clock,
		wake:      make(chan struct{}, 1),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.stats.Running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().
		Dur("poll_interval", w.config.PollInterval).
		Int("batch_size", w.config.BatchSize).
		Msg("outbox worker started")

	return nil
}

func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker not running")
	}
	w.running = false
	w.stats.Running = false
	close(w.stopChan)
	w.mu.Unlock()

	w.wg.Wait()

	log.Info().Msg("outbox worker stopped")
	return nil
}

// Wake asks the worker to process a batch now instead of waiting for the
// next tick. It never blocks.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Notify satisfies the session controller's notifier so committed
// mutations are relayed promptly.
func (w *Worker) Notify(uuid.UUID) {
	w.Wake()
}

// Stats returns the worker's last run details
func (w *Worker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := w.clock.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.mu.Lock()
	stop := w.stopChan
	w.mu.Unlock()

	// Process immediately on start
	w.processOutbox(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.Chan():
			w.processOutbox(ctx)
		case <-w.wake:
			w.processOutbox(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	n, err := w.ProcessBatch(ctx)

	w.mu.Lock()
	w.stats.LastRun = w.clock.Now()
	w.stats.LastPublished = n
	w.stats.LastError = ""
	if err != nil {
		w.stats.LastError = err.Error()
	}
	w.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Msg("outbox batch failed")
	}
}

// ProcessBatch publishes one batch of unsent events in creation order and
// marks the published ones sent. Publishing stops at the first event that
// exhausts its retries so per-session order is preserved.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	start := w.clock.Now()

	events, err := w.app.FetchUnsentEvents(ctx, w.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch unsent events: %w", err)
	}

	var successfulIDs []uuid.UUID
	var publishErr error
	for _, event := range events {
		if err := w.publishWithRetry(ctx, event); err != nil {
			log.Error().
				Err(err).
				Str("event_id", event.ID.String()).
				Str("event_type", event.EventType).
				Msg("failed to publish event")
			publishErr = err
			break
		}
		successfulIDs = append(successfulIDs, event.ID)
	}

	if err := w.app.MarkEventsSent(ctx, successfulIDs); err != nil {
		return 0, fmt.Errorf("failed to mark events as sent: %w", err)
	}

	if len(events) > 0 {
		w.metrics.RecordBatchProcessed(len(successfulIDs), w.clock.Since(start))
		log.Debug().
			Int("published", len(successfulIDs)).
			Int("fetched", len(events)).
			Msg("processed outbox batch")
	}

	if pending, err := w.app.Pending(ctx); err == nil {
		w.metrics.RecordOutboxLag(pending)
	}

	if w.config.Retention > 0 {
		if purged, err := w.app.PurgeSent(ctx, w.config.Retention); err != nil {
			log.Warn().Err(err).Msg("failed to purge sent outbox events")
		} else if purged > 0 {
			log.Debug().Int("purged", purged).Msg("purged sent outbox events")
		}
	}

	return len(successfulIDs), publishErr
}

func (w *Worker) publishWithRetry(ctx context.Context, event Event) error {
	var lastErr error

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 && w.config.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.clock.After(w.config.RetryDelay * time.Duration(attempt)):
			}
		}

		err := w.publisher.Publish(ctx, event)
		w.metrics.RecordPublishAttempt(event.EventType, attempt+1, err == nil)
		if err == nil {
			return nil
		}

		lastErr = err
		log.Warn().
			Err(err).
			Str("event_id", event.ID.String()).
			Int("attempt", attempt+1).
			Msg("failed to publish event, retrying")
	}

	return fmt.Errorf("failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}
