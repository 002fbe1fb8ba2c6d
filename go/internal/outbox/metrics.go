package outbox

import (
	"context"
	"strconv"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/metrics"
)

// MetricsCollector defines the interface for collecting outbox metrics
type MetricsCollector interface {
	RecordEventProcessed(eventType string, success bool, duration time.Duration)
	RecordBatchProcessed(count int, duration time.Duration)
	RecordOutboxLag(lag int)
	RecordPublishAttempt(eventType string, attempt int, success bool)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
}
func (NoOpMetricsCollector) RecordBatchProcessed(count int, duration time.Duration)           {}
func (NoOpMetricsCollector) RecordOutboxLag(lag int)                                          {}
func (NoOpMetricsCollector) RecordPublishAttempt(eventType string, attempt int, success bool) {}

// PrometheusMetrics implements MetricsCollector with the collectors
// registered in the metrics package
type PrometheusMetrics struct{}

// NewPrometheusMetrics returns the Prometheus collector
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{}
}

func (m *PrometheusMetrics) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
	metrics.OutboxEvents.WithLabelValues(eventType, metrics.Status(success)).Inc()
	metrics.OutboxPublishDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordBatchProcessed(count int, duration time.Duration) {
	metrics.OutboxBatchSize.Observe(float64(count))
}

func (m *PrometheusMetrics) RecordOutboxLag(lag int) {
	metrics.OutboxLag.Set(float64(lag))
}

func (m *PrometheusMetrics) RecordPublishAttempt(eventType string, attempt int, success bool) {
	metrics.OutboxPublishAttempts.WithLabelValues(eventType, strconv.Itoa(attempt), metrics.Status(success)).Inc()
}

// MetricPublisher wraps a Publisher with metrics collection
type MetricPublisher struct {
	publisher Publisher
	metrics   MetricsCollector
}

func NewMetricPublisher(publisher Publisher, metrics MetricsCollector) *MetricPublisher {
	return &MetricPublisher{
		publisher: publisher,
		metrics:   metrics,
	}
}

func (p *MetricPublisher) Publish(ctx context.Context, event Event) error {
	start := time.Now()
	err := p.publisher.Publish(ctx, event)
	p.metrics.RecordEventProcessed(event.EventType, err == nil, time.Since(start))
	return err
}
