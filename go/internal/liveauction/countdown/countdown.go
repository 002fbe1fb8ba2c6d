// Package countdown keeps a viewer's bid timer in step with the server.
//
// The server records only when the timer started and how long it runs.
// A viewer counts down locally one second at a time and snaps back to the
// server-derived value on every poll, so drift never accumulates:
//
//  1. Poll returns {state: LIVE, timerStartedAt, timerDuration: 20}
//  2. Recalibrate sets remaining = ceil(20 - (now - timerStartedAt))
//  3. Tick counts 14, 13, 12... until the next poll
//  4. A bid resets timerStartedAt, the next poll jumps back to 20
package countdown

import (
	"sync"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/models"
)

// Countdown is a locally ticking view of a lot's bid timer. It is safe for
// concurrent use by a poll loop and a tick loop.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	running   bool
	playerID  string
}

// New returns a stopped countdown at zero
func New() *Countdown {
	return &Countdown{}
}

// Recalibrate resets the countdown from a polled ledger. It only runs while
// the lot is LIVE; a paused lot shows its frozen value, anything else
// shows zero.
func (c *Countdown) Recalibrate(l *models.TempAuctionLedger, now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l == nil {
		c.remaining, c.running, c.playerID = 0, false, ""
		return 0
	}
	c.playerID = l.PlayerID
	c.remaining = l.RemainingAt(now)
	c.running = l.State == models.LedgerStateLive && c.remaining > 0
	return c.remaining
}

// Tick counts one second down and returns the new value. It never goes
// below zero and does nothing while stopped.
func (c *Countdown) Tick() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return c.remaining
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.running = false
	}
	return c.remaining
}

// Remaining returns the current value in whole seconds
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Running reports whether Tick is counting down
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// PlayerID returns the player whose lot was last seen
func (c *Countdown) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// Stop halts the countdown and zeroes it
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining, c.running = 0, false
}
