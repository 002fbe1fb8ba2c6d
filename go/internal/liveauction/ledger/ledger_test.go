package ledger

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction/slab"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	teamA = Bidder{TeamID: "team-a", TeamName: "Alpha", PurseRemaining: 100}
	teamB = Bidder{TeamID: "team-b", TeamName: "Bravo", PurseRemaining: 100}
)

func newLedger(t *testing.T, clock Clock, basePrice float64) *Ledger {
	t.Helper()
	l, err := New(Config{
		PlayerID:      "player-1",
		PlayerName:    "Test Player",
		BasePrice:     basePrice,
		Slabs:         slab.Default(),
		TimerDuration: 20 * time.Second,
	}, clock)
	require.NoError(t, err)
	return l
}

func newLiveLedger(t *testing.T, clock Clock, basePrice float64) *Ledger {
	t.Helper()
	l := newLedger(t, clock, basePrice)
	require.NoError(t, l.StartBidding())
	return l
}

func TestNewLedgerStartsReady(t *testing.T) {
	l := newLedger(t, clockwork.NewFakeClock(), 5)

	snap := l.Snapshot()
	assert.Equal(t, models.LedgerStateReady, snap.State)
	assert.Equal(t, 5.0, snap.CurrentBid)
	assert.Nil(t, snap.HighestBidder)
	assert.Empty(t, snap.BidHistory)
	assert.Nil(t, snap.TimerStartedAt)
	assert.Equal(t, 20, snap.TimeRemaining)
}

func TestNewLedgerValidation(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cases := []struct {
		name string
		cfg  Config
	}{
		{name: "missing player", cfg: Config{BasePrice: 5, Slabs: slab.Default(), TimerDuration: time.Second}},
		{name: "negative base", cfg: Config{PlayerID: "p", BasePrice: -1, Slabs: slab.Default(), TimerDuration: time.Second}},
		{name: "no timer", cfg: Config{PlayerID: "p", BasePrice: 5, Slabs: slab.Default()}},
		{name: "no slabs", cfg: Config{PlayerID: "p", BasePrice: 5, TimerDuration: time.Second}},
		{name: "bad policy", cfg: Config{PlayerID: "p", BasePrice: 5, Slabs: slab.Default(), TimerDuration: time.Second, JumpPolicy: "loose"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg, clock)
			assert.Error(t, err)
		})
	}
}

func TestStartBiddingOnlyFromReady(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := newLedger(t, clock, 5)

	require.NoError(t, l.StartBidding())
	assert.Equal(t, models.LedgerStateLive, l.State())
	require.NotNil(t, l.Snapshot().TimerStartedAt)
	assert.Equal(t, clock.Now(), *l.Snapshot().TimerStartedAt)

	assert.ErrorIs(t, l.StartBidding(), ErrInvalidState)
}

func TestConfirmBidScenario(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := newLiveLedger(t, clock, 5)

	entry, err := l.ConfirmBid(teamA)
	require.NoError(t, err)
	assert.Equal(t, 5.25, entry.BidAmount)
	assert.Equal(t, models.BidKindStep, entry.Kind)

	snap := l.Snapshot()
	assert.Equal(t, 5.25, snap.CurrentBid)
	require.NotNil(t, snap.HighestBidder)
	assert.Equal(t, "team-a", snap.HighestBidder.TeamID)
	assert.Len(t, snap.BidHistory, 1)
}

func TestConfirmBidCrossesSlabBoundary(t *testing.T) {
	l := newLiveLedger(t, clockwork.NewFakeClock(), 9.8)

	entry, err := l.ConfirmBid(teamA)
	require.NoError(t, err)
	assert.Equal(t, 10.05, entry.BidAmount)

	entry, err = l.ConfirmBid(teamB)
	require.NoError(t, err)
	assert.Equal(t, 10.55, entry.BidAmount)
}

func TestConfirmBidResetsTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := newLiveLedger(t, clock, 5)

	clock.Advance(15 * time.Second)
	assert.Equal(t, 5*time.Second, l.TimeRemaining())

	_, err := l.ConfirmBid(teamA)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, l.TimeRemaining())
	assert.Equal(t, clock.Now(), *l.Snapshot().TimerStartedAt)
}

func TestConfirmBidInsufficientPurse(t *testing.T) {
	l := newLiveLedger(t, clockwork.NewFakeClock(), 5)
	poor := Bidder{TeamID: "team-p", TeamName: "Poor", PurseRemaining: 5.2}

	_, err := l.ConfirmBid(poor)
	assert.ErrorIs(t, err, ErrInsufficientPurse)

	snap := l.Snapshot()
	assert.Equal(t, 5.0, snap.CurrentBid)
	assert.Nil(t, snap.HighestBidder)
	assert.Empty(t, snap.BidHistory)
}

func TestConfirmBidRequiresLive(t *testing.T) {
	l := newLedger(t, clockwork.NewFakeClock(), 5)

	_, err := l.ConfirmBid(teamA)
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, l.StartBidding())
	require.NoError(t, l.Pause())
	_, err = l.ConfirmBid(teamA)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSubmitJumpBid(t *testing.T) {
	cases := []struct {
		name    string
		policy  JumpPolicy
		amount  float64
		wantErr error
	}{
		{name: "aligned amount", policy: JumpPolicyAligned, amount: 7.5},
		{name: "exactly next bid", policy: JumpPolicyAligned, amount: 5.25},
		{name: "off ladder rejected when aligned", policy: JumpPolicyAligned, amount: 7.6, wantErr: ErrInvalidBidAmount},
		{name: "off ladder accepted with minimum policy", policy: JumpPolicyMinimum, amount: 7.6},
		{name: "equal to current", policy: JumpPolicyMinimum, amount: 5, wantErr: ErrInvalidBidAmount},
		{name: "below next bid", policy: JumpPolicyMinimum, amount: 5.1, wantErr: ErrInvalidBidAmount},
		{name: "over purse", policy: JumpPolicyAligned, amount: 101.25, wantErr: ErrInsufficientPurse},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := New(Config{
				PlayerID:      "player-1",
				BasePrice:     5,
				Slabs:         slab.Default(),
				TimerDuration: 20 * time.Second,
				JumpPolicy:    tc.policy,
			}, clockwork.NewFakeClock())
			require.NoError(t, err)
			require.NoError(t, l.StartBidding())

			entry, err := l.SubmitJumpBid(teamA, tc.amount)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, 5.0, l.CurrentBid())
				assert.Nil(t, l.HighestBidder())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.amount, entry.BidAmount)
			assert.Equal(t, models.BidKindJump, entry.Kind)
			assert.Equal(t, tc.amount, l.CurrentBid())
		})
	}
}

func TestPauseResumeKeepsRemainingTime(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := newLiveLedger(t, clock, 5)

	clock.Advance(8 * time.Second)
	require.NoError(t, l.Pause())
	assert.Equal(t, 12*time.Second, l.TimeRemaining())

	paused := l.Snapshot()
	require.NotNil(t, paused.PausedRemaining)
	assert.Equal(t, 12.0, *paused.PausedRemaining)
	assert.Equal(t, 12, paused.TimeRemaining)

	clock.Advance(time.Minute)
	assert.Equal(t, 12*time.Second, l.TimeRemaining())

	require.NoError(t, l.Resume())
	resumed := l.Snapshot()
	assert.Equal(t, models.LedgerStateLive, resumed.State)
	assert.Equal(t, 12, resumed.TimeRemaining)
	assert.Nil(t, resumed.PausedRemaining)

	// Viewers computing duration - (now - timerStartedAt) see the same value.
	elapsed := clock.Now().Sub(*resumed.TimerStartedAt)
	assert.Equal(t, 12*time.Second, 20*time.Second-elapsed)
}

func TestPauseResumeStateChecks(t *testing.T) {
	l := newLedger(t, clockwork.NewFakeClock(), 5)

	assert.ErrorIs(t, l.Pause(), ErrInvalidState)
	assert.ErrorIs(t, l.Resume(), ErrInvalidState)

	require.NoError(t, l.StartBidding())
	assert.ErrorIs(t, l.Resume(), ErrInvalidState)
	require.NoError(t, l.Pause())
	assert.ErrorIs(t, l.Pause(), ErrInvalidState)
}

func TestMarkSold(t *testing.T) {
	l := newLiveLedger(t, clockwork.NewFakeClock(), 5)

	_, err := l.MarkSold()
	assert.ErrorIs(t, err, ErrNoBidsPlaced)
	assert.Equal(t, models.LedgerStateLive, l.State())

	_, err = l.ConfirmBid(teamA)
	require.NoError(t, err)
	_, err = l.ConfirmBid(teamB)
	require.NoError(t, err)

	sale, err := l.MarkSold()
	require.NoError(t, err)
	assert.Equal(t, Sale{
		PlayerID:   "player-1",
		PlayerName: "Test Player",
		TeamID:     "team-b",
		TeamName:   "Bravo",
		Amount:     5.5,
	}, sale)
	assert.Equal(t, models.LedgerStateSold, l.State())
	assert.Equal(t, time.Duration(0), l.TimeRemaining())

	_, err = l.ConfirmBid(teamA)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMarkSoldWhilePaused(t *testing.T) {
	l := newLiveLedger(t, clockwork.NewFakeClock(), 5)
	_, err := l.ConfirmBid(teamA)
	require.NoError(t, err)
	require.NoError(t, l.Pause())

	_, err = l.MarkSold()
	require.NoError(t, err)
	assert.Equal(t, models.LedgerStateSold, l.State())
}

func TestMarkUnsold(t *testing.T) {
	l := newLedger(t, clockwork.NewFakeClock(), 5)
	assert.ErrorIs(t, l.MarkUnsold(), ErrInvalidState)

	require.NoError(t, l.StartBidding())
	require.NoError(t, l.MarkUnsold())
	assert.Equal(t, models.LedgerStateUnsold, l.State())
	assert.ErrorIs(t, l.MarkUnsold(), ErrInvalidState)
}

func TestTimerExpiryIsAdvisory(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := newLiveLedger(t, clock, 5)

	clock.Advance(time.Minute)
	assert.Equal(t, time.Duration(0), l.TimeRemaining())
	assert.Equal(t, models.LedgerStateLive, l.State())

	_, err := l.ConfirmBid(teamA)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, l.TimeRemaining())
}

func TestCloneIsIndependent(t *testing.T) {
	l := newLiveLedger(t, clockwork.NewFakeClock(), 5)
	_, err := l.ConfirmBid(teamA)
	require.NoError(t, err)

	c := l.Clone()
	_, err = c.ConfirmBid(teamB)
	require.NoError(t, err)

	assert.Equal(t, 5.25, l.CurrentBid())
	assert.Len(t, l.Snapshot().BidHistory, 1)
	assert.Equal(t, "team-a", l.HighestBidder().TeamID)
	assert.Equal(t, 5.5, c.CurrentBid())
	assert.Len(t, c.Snapshot().BidHistory, 2)
}

func TestHistoryIsAppendOnlyAndOrdered(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := newLiveLedger(t, clock, 5)

	for i := 0; i < 5; i++ {
		bidder := teamA
		if i%2 == 1 {
			bidder = teamB
		}
		clock.Advance(time.Second)
		_, err := l.ConfirmBid(bidder)
		require.NoError(t, err)
	}

	history := l.Snapshot().BidHistory
	require.Len(t, history, 5)
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i].BidAmount, history[i-1].BidAmount)
		assert.True(t, history[i].Timestamp.After(history[i-1].Timestamp))
	}

	// Mutating a snapshot does not reach the ledger.
	history[0].BidAmount = 999
	assert.Equal(t, 5.25, l.Snapshot().BidHistory[0].BidAmount)
}
