package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespaceLiveAuction = "liveauction"
	namespaceOutbox      = "outbox"
	namespaceGateway     = "gateway"
)

var (
	// BidsAccepted counts accepted bids by kind (BID or JUMP)
	BidsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceLiveAuction,
			Name:      "bids_accepted_total",
			Help:      "Accepted bids by kind.",
		}, []string{"kind"})

	// Rejections counts rejected operations by operation and error kind
	Rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceLiveAuction,
			Name:      "rejections_total",
			Help:      "Rejected operations by operation and error kind.",
		}, []string{"operation", "kind"})

	// LotsClosed counts finished lots by outcome (SOLD or UNSOLD)
	LotsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceLiveAuction,
			Name:      "lots_closed_total",
			Help:      "Finished lots by outcome.",
		}, []string{"outcome"})

	// ActiveSessions is the number of running live auction sessions
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceLiveAuction,
			Name:      "active_sessions",
			Help:      "Running live auction sessions.",
		})

	// MutationDuration observes how long a serialized mutation holds the session lock
	MutationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespaceLiveAuction,
			Name:      "mutation_duration_seconds",
			Help:      "Time spent applying a session mutation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"})

	// TimerExpirations counts advisory bid timer expirations
	TimerExpirations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespaceLiveAuction,
			Name:      "timer_expirations_total",
			Help:      "Bid timers that ran out while bidding was live.",
		})

	// OutboxEvents counts relayed outbox events by type and status
	OutboxEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceOutbox,
			Name:      "events_total",
			Help:      "Outbox events processed by type and status.",
		}, []string{"event_type", "status"})

	// OutboxPublishDuration observes publish latency by event type
	OutboxPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespaceOutbox,
			Name:      "publish_duration_seconds",
			Help:      "Time spent publishing one outbox event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"})

	// OutboxBatchSize observes the number of events per processed batch
	OutboxBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespaceOutbox,
			Name:      "batch_size",
			Help:      "Events per processed batch.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100},
		})

	// OutboxLag is the number of unsent events after the last batch
	OutboxLag = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceOutbox,
			Name:      "lag",
			Help:      "Unsent outbox events.",
		})

	// OutboxPublishAttempts counts publish attempts by type, attempt and status
	OutboxPublishAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespaceOutbox,
			Name:      "publish_attempts_total",
			Help:      "Publish attempts by event type, attempt number and status.",
		}, []string{"event_type", "attempt", "status"})

	// WebSocketConnections is the number of connected viewers
	WebSocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespaceGateway,
			Name:      "websocket_connections",
			Help:      "Connected WebSocket viewers.",
		})
)

func init() {
	prometheus.MustRegister(BidsAccepted)
	prometheus.MustRegister(Rejections)
	prometheus.MustRegister(LotsClosed)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(MutationDuration)
	prometheus.MustRegister(TimerExpirations)

	prometheus.MustRegister(OutboxEvents)
	prometheus.MustRegister(OutboxPublishDuration)
	prometheus.MustRegister(OutboxBatchSize)
	prometheus.MustRegister(OutboxLag)
	prometheus.MustRegister(OutboxPublishAttempts)

	prometheus.MustRegister(WebSocketConnections)
}

// Status labels a success flag
func Status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
