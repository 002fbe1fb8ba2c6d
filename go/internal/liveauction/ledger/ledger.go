package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction/slab"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

var (
	ErrInvalidState      = errors.New("invalid ledger state")
	ErrInsufficientPurse = errors.New("insufficient purse")
	ErrInvalidBidAmount  = errors.New("invalid bid amount")
	ErrNoBidsPlaced      = errors.New("no bids placed")
)

// JumpPolicy controls which jump bid amounts are accepted.
type JumpPolicy string

const (
	// JumpPolicyAligned only accepts amounts on the slab ladder.
	JumpPolicyAligned JumpPolicy = "aligned"
	// JumpPolicyMinimum accepts any amount at or above the next step.
	JumpPolicyMinimum JumpPolicy = "minimum"
)

// Valid reports whether p is a known policy
func (p JumpPolicy) Valid() bool {
	return p == JumpPolicyAligned || p == JumpPolicyMinimum
}

// Clock is the time source of a ledger. clockwork.Clock satisfies it.
type Clock interface {
	Now() time.Time
}

// Config describes the lot a ledger is opened for
type Config struct {
	PlayerID      string
	PlayerName    string
	BasePrice     float64
	Slabs         []models.BidSlab
	TimerDuration time.Duration
	JumpPolicy    JumpPolicy
}

// Bidder is a team bidding on the lot along with its purse at the time
// of the bid.
type Bidder struct {
	TeamID         string
	TeamName       string
	PurseRemaining float64
}

// Sale is the outcome of MarkSold
type Sale struct {
	PlayerID   string
	PlayerName string
	TeamID     string
	TeamName   string
	Amount     float64
}

// Ledger is the state machine of a single lot:
//
//	READY -> LIVE <-> PAUSED
//	LIVE | PAUSED -> SOLD | UNSOLD
//
// A Ledger is not safe for concurrent use; callers serialize access.
type Ledger struct {
	clock  Clock
	policy JumpPolicy

	state      models.LedgerState
	playerID   string
	playerName string
	basePrice  float64
	currentBid float64
	highest    *models.HighestBidder
	history    []models.BidEntry
	slabs      []models.BidSlab

	timerDuration   time.Duration
	timerStartedAt  *time.Time
	pausedRemaining time.Duration
}

// New opens a lot in READY with the current bid at the base price.
func New(cfg Config, clock Clock) (*Ledger, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	policy := cfg.JumpPolicy
	if policy == "" {
		policy = JumpPolicyAligned
	}

	return &Ledger{
		clock:         clock,
		policy:        policy,
		state:         models.LedgerStateReady,
		playerID:      cfg.PlayerID,
		playerName:    cfg.PlayerName,
		basePrice:     cfg.BasePrice,
		currentBid:    cfg.BasePrice,
		history:       []models.BidEntry{},
		slabs:         append([]models.BidSlab(nil), cfg.Slabs...),
		timerDuration: cfg.TimerDuration,
	}, nil
}

// State returns the current state
func (l *Ledger) State() models.LedgerState { return l.state }

// PlayerID returns the player under the hammer
func (l *Ledger) PlayerID() string { return l.playerID }

// PlayerName returns the player's display name
func (l *Ledger) PlayerName() string { return l.playerName }

// CurrentBid returns the standing bid, or the base price with no bids
func (l *Ledger) CurrentBid() float64 { return l.currentBid }

// HighestBidder returns the leading team, nil before the first bid
func (l *Ledger) HighestBidder() *models.HighestBidder {
	if l.highest == nil {
		return nil
	}
	hb := *l.highest
	return &hb
}

// StartBidding opens the lot and starts the bid timer.
func (l *Ledger) StartBidding() error {
	if l.state != models.LedgerStateReady {
		return l.invalidState("start bidding")
	}
	now := l.clock.Now()
	l.state = models.LedgerStateLive
	l.timerStartedAt = &now
	return nil
}

// ConfirmBid records a bid one slab step above the current bid.
func (l *Ledger) ConfirmBid(bidder Bidder) (models.BidEntry, error) {
	if l.state != models.LedgerStateLive {
		return models.BidEntry{}, l.invalidState("confirm bid")
	}
	amount, err := slab.NextBid(l.currentBid, l.slabs)
	if err != nil {
		return models.BidEntry{}, fmt.Errorf("failed to resolve next bid: %w", err)
	}
	if bidder.PurseRemaining < amount {
		return models.BidEntry{}, fmt.Errorf("%w: team %s has %.2f, bid is %.2f",
			ErrInsufficientPurse, bidder.TeamID, bidder.PurseRemaining, amount)
	}
	return l.record(bidder, amount, models.BidKindStep), nil
}

// SubmitJumpBid records a bid for an explicit amount above the next step.
func (l *Ledger) SubmitJumpBid(bidder Bidder, amount float64) (models.BidEntry, error) {
	if l.state != models.LedgerStateLive {
		return models.BidEntry{}, l.invalidState("submit jump bid")
	}
	if amount <= l.currentBid {
		return models.BidEntry{}, fmt.Errorf("%w: %.2f does not exceed current bid %.2f",
			ErrInvalidBidAmount, amount, l.currentBid)
	}
	next, err := slab.NextBid(l.currentBid, l.slabs)
	if err != nil {
		return models.BidEntry{}, fmt.Errorf("failed to resolve next bid: %w", err)
	}
	if amount < next {
		return models.BidEntry{}, fmt.Errorf("%w: %.2f is below the next valid bid %.2f",
			ErrInvalidBidAmount, amount, next)
	}
	if l.policy == JumpPolicyAligned && !slab.Reachable(l.currentBid, amount, l.slabs) {
		return models.BidEntry{}, fmt.Errorf("%w: %.2f is not a valid slab step from %.2f",
			ErrInvalidBidAmount, amount, l.currentBid)
	}
	if bidder.PurseRemaining < amount {
		return models.BidEntry{}, fmt.Errorf("%w: team %s has %.2f, bid is %.2f",
			ErrInsufficientPurse, bidder.TeamID, bidder.PurseRemaining, amount)
	}
	return l.record(bidder, amount, models.BidKindJump), nil
}

// Pause freezes the countdown at its current value.
func (l *Ledger) Pause() error {
	if l.state != models.LedgerStateLive {
		return l.invalidState("pause")
	}
	l.pausedRemaining = l.liveRemaining()
	l.state = models.LedgerStatePaused
	return nil
}

// Resume continues the countdown from where it was frozen. The timer
// start is back-dated so that duration minus elapsed equals the frozen
// value.
func (l *Ledger) Resume() error {
	if l.state != models.LedgerStatePaused {
		return l.invalidState("resume")
	}
	startedAt := l.clock.Now().Add(-(l.timerDuration - l.pausedRemaining))
	l.timerStartedAt = &startedAt
	l.pausedRemaining = 0
	l.state = models.LedgerStateLive
	return nil
}

// MarkSold closes the lot to the highest bidder.
func (l *Ledger) MarkSold() (Sale, error) {
	if l.state != models.LedgerStateLive && l.state != models.LedgerStatePaused {
		return Sale{}, l.invalidState("mark sold")
	}
	if l.highest == nil {
		return Sale{}, ErrNoBidsPlaced
	}
	l.state = models.LedgerStateSold
	return Sale{
		PlayerID:   l.playerID,
		PlayerName: l.playerName,
		TeamID:     l.highest.TeamID,
		TeamName:   l.highest.TeamName,
		Amount:     l.currentBid,
	}, nil
}

// MarkUnsold closes the lot without a sale.
func (l *Ledger) MarkUnsold() error {
	if l.state != models.LedgerStateLive && l.state != models.LedgerStatePaused {
		return l.invalidState("mark unsold")
	}
	l.state = models.LedgerStateUnsold
	return nil
}

// TimeRemaining returns the time left on the bid timer. Expiry does not
// change the state.
func (l *Ledger) TimeRemaining() time.Duration {
	switch l.state {
	case models.LedgerStateReady:
		return l.timerDuration
	case models.LedgerStateLive:
		return l.liveRemaining()
	case models.LedgerStatePaused:
		return l.pausedRemaining
	default:
		return 0
	}
}

// Clone returns an independent copy sharing only the clock.
func (l *Ledger) Clone() *Ledger {
	c := *l
	c.history = append([]models.BidEntry(nil), l.history...)
	c.slabs = append([]models.BidSlab(nil), l.slabs...)
	if l.highest != nil {
		hb := *l.highest
		c.highest = &hb
	}
	if l.timerStartedAt != nil {
		ts := *l.timerStartedAt
		c.timerStartedAt = &ts
	}
	return &c
}

// Snapshot returns the published view of the ledger.
func (l *Ledger) Snapshot() models.TempAuctionLedger {
	snap := models.TempAuctionLedger{
		State:         l.state,
		PlayerID:      l.playerID,
		PlayerName:    l.playerName,
		BasePrice:     l.basePrice,
		CurrentBid:    l.currentBid,
		HighestBidder: l.HighestBidder(),
		BidHistory:    append([]models.BidEntry{}, l.history...),
		TimerDuration: int(l.timerDuration / time.Second),
		BidSlabs:      append([]models.BidSlab(nil), l.slabs...),
	}
	if l.timerStartedAt != nil {
		ts := *l.timerStartedAt
		snap.TimerStartedAt = &ts
	}
	if l.state == models.LedgerStatePaused {
		secs := l.pausedRemaining.Seconds()
		snap.PausedRemaining = &secs
	}
	snap.TimeRemaining = snap.RemainingAt(l.clock.Now())
	return snap
}

func (l *Ledger) record(bidder Bidder, amount float64, kind models.BidKind) models.BidEntry {
	now := l.clock.Now()
	entry := models.BidEntry{
		ID:        uuid.NewString(),
		TeamID:    bidder.TeamID,
		TeamName:  bidder.TeamName,
		BidAmount: amount,
		Kind:      kind,
		Timestamp: now,
	}
	l.history = append(l.history, entry)
	l.currentBid = amount
	l.highest = &models.HighestBidder{TeamID: bidder.TeamID, TeamName: bidder.TeamName}
	l.timerStartedAt = &now
	return entry
}

func (l *Ledger) liveRemaining() time.Duration {
	if l.timerStartedAt == nil {
		return l.timerDuration
	}
	remaining := l.timerDuration - l.clock.Now().Sub(*l.timerStartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (l *Ledger) invalidState(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, l.state)
}

func validateConfig(cfg Config) error {
	if cfg.PlayerID == "" {
		return fmt.Errorf("player ID is required")
	}
	if cfg.BasePrice < 0 {
		return fmt.Errorf("base price cannot be negative")
	}
	if cfg.TimerDuration <= 0 {
		return fmt.Errorf("timer duration must be positive")
	}
	if cfg.JumpPolicy != "" && !cfg.JumpPolicy.Valid() {
		return fmt.Errorf("unknown jump policy %q", cfg.JumpPolicy)
	}
	if err := slab.Validate(cfg.Slabs); err != nil {
		return err
	}
	return nil
}
