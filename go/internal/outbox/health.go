package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
)

type HealthStatus struct {
	Healthy            bool      `json:"healthy"`
	WorkerRunning      bool      `json:"worker_running"`
	LastRun            time.Time `json:"last_run"`
	PendingEvents      int       `json:"pending_events"`
	PublisherConnected bool      `json:"publisher_connected"`
	Errors             []string  `json:"errors"`
}

// ConnectionChecker is implemented by publishers backed by a broker
type ConnectionChecker interface {
	Connected() bool
}

type HealthChecker struct {
	app       *App
	worker    *Worker
	publisher Publisher
	clock     clockwork.Clock
	threshold time.Duration // How long a backlog may sit without a run
}

func NewHealthChecker(app *App, worker *Worker, publisher Publisher, clock clockwork.Clock, threshold time.Duration) *HealthChecker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HealthChecker{
		app:       app,
		worker:    worker,
		publisher: publisher,
		clock:     clock,
		threshold: threshold,
	}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:            true,
		PublisherConnected: true,
		Errors:             []string{},
	}

	stats := h.worker.Stats()
	status.WorkerRunning = stats.Running
	status.LastRun = stats.LastRun
	if !stats.Running {
		status.Healthy = false
		status.Errors = append(status.Errors, "worker not running")
	}
	if stats.LastError != "" {
		status.Errors = append(status.Errors, stats.LastError)
	}

	if cc, ok := h.publisher.(ConnectionChecker); ok {
		status.PublisherConnected = cc.Connected()
		if !status.PublisherConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "publisher disconnected")
		}
	}

	pending, err := h.app.Pending(ctx)
	if err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending events: %v", err))
	} else {
		status.PendingEvents = pending
		if pending > 1000 {
			status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", pending))
		}
	}

	if status.PendingEvents > 0 && !status.LastRun.IsZero() && h.threshold > 0 {
		if since := h.clock.Since(status.LastRun); since > h.threshold {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no outbox run for %s", since))
		}
	}

	return status
}

// HTTP handler helper
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}
