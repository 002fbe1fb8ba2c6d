package liveauction

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// expiryWatcher keeps one advisory timer per session. A fired timer only
// reports expiry; it never changes lot state.
type expiryWatcher struct {
	clock  clockwork.Clock
	onFire func(sessionID uuid.UUID, playerID string)

	mu     sync.Mutex
	timers map[uuid.UUID]*expiryTimer
}

type expiryTimer struct {
	timer    clockwork.Timer
	playerID string
	deadline time.Time
	cancel   chan struct{}
}

func newExpiryWatcher(clock clockwork.Clock, onFire func(sessionID uuid.UUID, playerID string)) *expiryWatcher {
	return &expiryWatcher{
		clock:  clock,
		onFire: onFire,
		timers: make(map[uuid.UUID]*expiryTimer),
	}
}

// schedule replaces any existing timer for the session with one that
// fires after remaining.
func (w *expiryWatcher) schedule(sessionID uuid.UUID, playerID string, remaining time.Duration) {
	deadline := w.clock.Now().Add(remaining)

	w.mu.Lock()
	if existing, ok := w.timers[sessionID]; ok {
		if existing.playerID == playerID && existing.deadline.Equal(deadline) {
			w.mu.Unlock()
			return
		}
		existing.stop()
		log.Debug().Str("session_id", sessionID.String()).Msg("replaced existing expiry timer")
	}
	t := &expiryTimer{
		timer:    w.clock.NewTimer(remaining),
		playerID: playerID,
		deadline: deadline,
		cancel:   make(chan struct{}),
	}
	w.timers[sessionID] = t
	w.mu.Unlock()

	go func(id uuid.UUID, t *expiryTimer) {
		select {
		case <-t.timer.Chan():
			if !w.remove(id, t) {
				return
			}
			w.onFire(id, t.playerID)
		case <-t.cancel:
		}
	}(sessionID, t)

	log.Debug().
		Str("session_id", sessionID.String()).
		Str("player_id", playerID).
		Time("deadline", deadline).
		Msg("scheduled expiry timer")
}

// cancel stops and removes the session's timer. It never waits for the
// timer goroutine, so it is safe to call while holding a session lock.
func (w *expiryWatcher) cancel(sessionID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[sessionID]; ok {
		t.stop()
		delete(w.timers, sessionID)
		log.Debug().Str("session_id", sessionID.String()).Msg("cancelled expiry timer")
	}
}

// stopAll cancels every timer
func (w *expiryWatcher) stopAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, t := range w.timers {
		t.stop()
		delete(w.timers, id)
	}
}

// remove deletes t if it is still the session's current timer
func (w *expiryWatcher) remove(sessionID uuid.UUID, t *expiryTimer) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timers[sessionID] != t {
		return false
	}
	delete(w.timers, sessionID)
	return true
}

func (t *expiryTimer) stop() {
	stopAndDrainTimer(t.timer)
	close(t.cancel)
}

// stopAndDrainTimer stops a timer and drains its channel so a pending
// fire is discarded.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
