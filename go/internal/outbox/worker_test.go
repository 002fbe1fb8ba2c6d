package outbox

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu        sync.Mutex
	failFirst int
	failAll   bool
	attempts  int
	published []Event
}

func (p *fakePublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.failAll || p.attempts <= p.failFirst {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func (p *fakePublisher) sent() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.published...)
}

type recordingMetrics struct {
	NoOpMetricsCollector
	mu  sync.Mutex
	lag int
}

func (m *recordingMetrics) RecordOutboxLag(lag int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lag = lag
}

func testWorkerConfig() Config {
	return Config{PollInterval: time.Second, BatchSize: 10, MaxRetries: 3}
}

func TestProcessBatchPublishesInOrder(t *testing.T) {
	ctx := context.Background()
	app, _, clock := newTestApp(t)
	sessionID := uuid.New()
	for _, amount := range []float64{1, 1.25, 1.5} {
		require.NoError(t, app.InsertEvent(ctx, sessionID, string(events.EventTypeBidPlaced), bidPayload(t, amount)))
		clock.Advance(time.Millisecond)
	}

	pub := &fakePublisher{}
	metrics := &recordingMetrics{}
	w := NewWorker(app, pub, metrics, testWorkerConfig(), clock)

	n, err := w.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	sent := pub.sent()
	require.Len(t, sent, 3)
	for i := 1; i < len(sent); i++ {
		assert.True(t, sent[i-1].CreatedAt.Before(sent[i].CreatedAt))
	}
	assert.Zero(t, metrics.lag)

	n, err = w.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, pub.sent(), 3)
}

func TestProcessBatchRetries(t *testing.T) {
	ctx := context.Background()
	app, _, clock := newTestApp(t)
	require.NoError(t, app.InsertEvent(ctx, uuid.New(), string(events.EventTypeBidPlaced), bidPayload(t, 1)))

	pub := &fakePublisher{failFirst: 2}
	w := NewWorker(app, pub, nil, testWorkerConfig(), clock)

	n, err := w.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, pub.attempts)
}

func TestProcessBatchStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	app, _, clock := newTestApp(t)
	require.NoError(t, app.InsertEvent(ctx, uuid.New(), string(events.EventTypeBidPlaced), bidPayload(t, 1)))
	clock.Advance(time.Millisecond)
	require.NoError(t, app.InsertEvent(ctx, uuid.New(), string(events.EventTypeBidPlaced), bidPayload(t, 2)))

	pub := &fakePublisher{failAll: true}
	metrics := &recordingMetrics{}
	cfg := testWorkerConfig()
	cfg.MaxRetries = 1
	w := NewWorker(app, pub, metrics, cfg, clock)

	n, err := w.ProcessBatch(ctx)
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, pub.attempts)
	assert.Equal(t, 2, metrics.lag)

	pending, err := app.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
}

func TestProcessBatchPurgesAfterRetention(t *testing.T) {
	ctx := context.Background()
	app, repo, clock := newTestApp(t)
	require.NoError(t, app.InsertEvent(ctx, uuid.New(), string(events.EventTypeBidPlaced), bidPayload(t, 1)))

	cfg := testWorkerConfig()
	cfg.Retention = time.Hour
	w := NewWorker(app, &fakePublisher{}, nil, cfg, clock)

	_, err := w.ProcessBatch(ctx)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = w.ProcessBatch(ctx)
	require.NoError(t, err)

	left, err := repo.PurgeSent(ctx, clock.Now())
	require.NoError(t, err)
	assert.Zero(t, left)
	pending, err := app.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestWorkerStartStop(t *testing.T) {
	ctx := context.Background()
	app, _, clock := newTestApp(t)
	require.NoError(t, app.InsertEvent(ctx, uuid.New(), string(events.EventTypeBidPlaced), bidPayload(t, 1)))

	pub := &fakePublisher{}
	w := NewWorker(app, pub, nil, testWorkerConfig(), clock)
	require.NoError(t, w.Start(ctx))
	assert.Error(t, w.Start(ctx))

	assert.Eventually(t, func() bool { return len(pub.sent()) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, app.InsertEvent(ctx, uuid.New(), string(events.EventTypeBidPlaced), bidPayload(t, 2)))
	w.Wake()
	w.Wake()
	assert.Eventually(t, func() bool { return len(pub.sent()) == 2 }, time.Second, 10*time.Millisecond)

	assert.True(t, w.Stats().Running)
	require.NoError(t, w.Stop())
	assert.False(t, w.Stats().Running)
	assert.Error(t, w.Stop())
}

func TestHealthChecker(t *testing.T) {
	app, _, clock := newTestApp(t)
	w := NewWorker(app, &fakePublisher{}, nil, testWorkerConfig(), clock)
	h := NewHealthChecker(app, w, &fakePublisher{}, clock, time.Minute)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "worker not running")

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy":true`)
}
