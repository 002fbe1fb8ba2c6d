package liveauction_client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction/countdown"
	"github.com/rs/zerolog/log"
)

// DefaultPollInterval matches the browser client's refresh rate
const DefaultPollInterval = time.Second

type PollerConfig struct {
	Query    StateQuery
	Interval time.Duration
	// MaxFailures stops Run after that many consecutive failed polls.
	// Zero keeps polling forever.
	MaxFailures int
	Clock       clockwork.Clock
	// OnState is called after every successful poll
	OnState func(*State)
	// OnTick is called with the remaining seconds after every local tick
	OnTick func(remaining int)
}

// Poller keeps a local view of a live auction by polling the state
// endpoint and counting down between polls
type Poller struct {
	client    *Client
	cfg       PollerConfig
	clock     clockwork.Clock
	countdown *countdown.Countdown

	stopOnce sync.Once
	stop     chan struct{}

	mu   sync.RWMutex
	last *State
}

func NewPoller(client *Client, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Poller{
		client:    client,
		cfg:       cfg,
		clock:     clock,
		countdown: countdown.New(),
		stop:      make(chan struct{}),
	}
}

// Run polls until ctx is done, Stop is called, or MaxFailures consecutive
// polls fail. Its tickers are released on every exit.
func (p *Poller) Run(ctx context.Context) error {
	pollTicker := p.clock.NewTicker(p.cfg.Interval)
	defer pollTicker.Stop()
	tickTicker := p.clock.NewTicker(time.Second)
	defer tickTicker.Stop()
	defer p.countdown.Stop()

	failures := 0
	poll := func() error {
		if err := p.Poll(ctx); err != nil {
			failures++
			log.Warn().Err(err).Int("failures", failures).Msg("live auction poll failed")
			if p.cfg.MaxFailures > 0 && failures >= p.cfg.MaxFailures {
				return fmt.Errorf("giving up after %d failed polls: %w", failures, err)
			}
			return nil
		}
		failures = 0
		return nil
	}

	if err := poll(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stop:
			return nil
		case <-pollTicker.Chan():
			if err := poll(); err != nil {
				return err
			}
		case <-tickTicker.Chan():
			remaining := p.countdown.Tick()
			if p.cfg.OnTick != nil {
				p.cfg.OnTick(remaining)
			}
		}
	}
}

// Poll fetches state once and applies it
func (p *Poller) Poll(ctx context.Context) error {
	state, err := p.client.State(ctx, p.cfg.Query)
	if err != nil {
		return err
	}
	p.Apply(state)
	return nil
}

// Apply recalibrates the countdown from a fetched state. The timer is
// measured on the server's clock when the state carries it, so a skewed
// local clock does not shift the countdown.
func (p *Poller) Apply(state *State) {
	now := p.clock.Now()
	if !state.ServerTime.IsZero() {
		now = state.ServerTime
	}
	p.countdown.Recalibrate(state.Ledger, now)

	p.mu.Lock()
	p.last = state
	p.mu.Unlock()

	if p.cfg.OnState != nil {
		p.cfg.OnState(state)
	}
}

// Stop ends Run. It is safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// State returns the last polled state, nil before the first poll
func (p *Poller) State() *State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Remaining returns the locally counted seconds left on the bid timer
func (p *Poller) Remaining() int {
	return p.countdown.Remaining()
}
