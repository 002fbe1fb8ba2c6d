package liveauction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/auctions"
	"github.com/mcdev12/auctionhouse/go/internal/history"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/player"
	"github.com/mcdev12/auctionhouse/go/internal/store"
	"github.com/mcdev12/auctionhouse/go/internal/teams"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	auctioneer = Caller{ID: "u1", Name: "Ravi", Role: models.RoleAuctioneer}
	otherAuct  = Caller{ID: "u2", Name: "Meera", Role: models.RoleAuctioneer}
	viewer     = Caller{ID: "p9", Name: "Fan", Role: models.RolePlayer}
	admin      = Caller{ID: "a1", Name: "Admin", Role: models.RoleAdmin}
)

type fakeOutbox struct {
	mu     sync.Mutex
	types  []string
	failOn string
}

func (f *fakeOutbox) InsertEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if eventType == f.failOn {
		return errors.New("outbox unavailable")
	}
	f.types = append(f.types, eventType)
	return nil
}

func (f *fakeOutbox) setFailOn(t string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn = t
}

func (f *fakeOutbox) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.types...)
}

type fakeNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *fakeNotifier) Notify(uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
}

func (n *fakeNotifier) notified() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

type flakySessions struct {
	*DocumentSessionStore
	mu   sync.Mutex
	fail bool
}

func (f *flakySessions) SaveSession(ctx context.Context, rec SessionRecord) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return f.DocumentSessionStore.SaveSession(ctx, rec)
}

type fixture struct {
	app      *App
	clock    *clockwork.FakeClock
	teams    *teams.App
	players  *player.App
	auctions *auctions.App
	history  *history.App
	outbox   *fakeOutbox
	notifier *fakeNotifier
	sessions *flakySessions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		clock:    clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)),
		teams:    teams.NewApp(teams.NewRepository(fs)),
		players:  player.NewApp(player.NewRepository(fs)),
		outbox:   &fakeOutbox{},
		notifier: &fakeNotifier{},
		sessions: &flakySessions{DocumentSessionStore: NewDocumentSessionStore(fs)},
	}
	f.auctions = auctions.NewApp(auctions.NewRepository(fs), f.clock)
	f.history = history.NewApp(history.NewRepository(fs), f.clock)

	for _, team := range []models.Team{
		{ID: "t1", Name: "Chennai", Sport: "cricket", PurseRemaining: 100, TotalPurse: 100},
		{ID: "t2", Name: "Mumbai", Sport: "cricket", PurseRemaining: 100, TotalPurse: 100},
		{ID: "t3", Name: "Kochi", Sport: "cricket", PurseRemaining: 5, TotalPurse: 100},
	} {
		require.NoError(t, f.teams.SaveTeam(ctx, team))
	}
	for _, p := range []models.Player{
		{ID: "p1", Name: "Opener", Sport: "cricket", Role: "Batsman", BasePrice: 5},
		{ID: "p2", Name: "Quick", Sport: "cricket", Role: "Bowler", BasePrice: 2},
		{ID: "p3", Name: "Keeper", Sport: "cricket", Role: "Wicket-keeper", BasePrice: 1},
	} {
		require.NoError(t, f.players.SavePlayer(ctx, p))
	}
	require.NoError(t, f.auctions.SaveAuction(ctx, models.Auction{
		ID:                 "a1",
		Sport:              "cricket",
		Name:               "Premier Auction",
		AssignedAuctioneer: "u1",
		TeamIDs:            []string{"t1", "t2", "t3"},
		PlayerPool:         []string{"p1", "p2", "p3"},
	}))

	f.app = NewApp(Deps{
		Teams:    f.teams,
		Players:  f.players,
		Auctions: f.auctions,
		History:  f.history,
		Outbox:   f.outbox,
		Notifier: f.notifier,
		Sessions: f.sessions,
		Clock:    f.clock,
	}, Config{DefaultTimer: 20 * time.Second})
	t.Cleanup(f.app.Close)
	return f
}

func (f *fixture) start(t *testing.T) uuid.UUID {
	t.Helper()
	snap, err := f.app.StartSession(context.Background(), auctioneer, StartSessionRequest{
		AuctionID: "a1",
		Sport:     "cricket",
	})
	require.NoError(t, err)
	return snap.Session.ID
}

func (f *fixture) openLot(t *testing.T, id uuid.UUID, playerID string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.app.SelectPlayer(ctx, id, auctioneer, SelectPlayerRequest{PlayerID: playerID})
	require.NoError(t, err)
	_, err = f.app.StartBidding(ctx, id, auctioneer)
	require.NoError(t, err)
}

func TestStartSessionFromAuctionRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	snap, err := f.app.StartSession(ctx, auctioneer, StartSessionRequest{AuctionID: "a1", Sport: "cricket"})
	require.NoError(t, err)

	assert.Equal(t, "Premier Auction", snap.Session.Name)
	assert.Equal(t, []string{"t1", "t2", "t3"}, snap.Session.TeamIDs)
	assert.Equal(t, []string{"p1", "p2", "p3"}, snap.Session.PlayerPool)
	assert.Equal(t, 20, snap.Session.TimerDuration)
	assert.Len(t, snap.Session.BidSlabs, 3)
	assert.Nil(t, snap.Ledger)
	assert.Equal(t, "Ravi", snap.Session.AuctioneerName)

	auction, err := f.auctions.GetAuction(ctx, "cricket", "a1")
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusLive, auction.Status)

	bySelf, err := f.app.SessionForAuctioneer("u1")
	require.NoError(t, err)
	assert.Equal(t, snap.Session.ID, bySelf.Session.ID)

	byAuction, err := f.app.SessionForAuction("a1")
	require.NoError(t, err)
	assert.Equal(t, snap.Session.ID, byAuction.Session.ID)

	assert.Equal(t, []string{"SessionStarted"}, f.outbox.recorded())
}

func TestStartSessionRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.app.StartSession(ctx, admin, StartSessionRequest{AuctionID: "a1", Sport: "cricket"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.app.StartSession(ctx, auctioneer, StartSessionRequest{Sport: "cricket"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.app.StartSession(ctx, auctioneer, StartSessionRequest{Sport: "cricket", TeamIDs: []string{"ghost"}})
	assert.ErrorIs(t, err, ErrNotFound)

	f.start(t)
	_, err = f.app.StartSession(ctx, auctioneer, StartSessionRequest{AuctionID: "a1", Sport: "cricket"})
	assert.ErrorIs(t, err, ErrAlreadyActive)

	// another auctioneer can run an ad hoc session at the same time
	_, err = f.app.StartSession(ctx, otherAuct, StartSessionRequest{Sport: "cricket", TeamIDs: []string{"t1"}, PlayerPool: []string{"p2"}})
	require.NoError(t, err)
	assert.Len(t, f.app.ActiveSessions(), 2)
}

func TestFullLotLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t)

	snap, err := f.app.SelectPlayer(ctx, id, auctioneer, SelectPlayerRequest{PlayerID: "p1"})
	require.NoError(t, err)
	require.NotNil(t, snap.Ledger)
	assert.Equal(t, models.LedgerStateReady, snap.Ledger.State)
	assert.Equal(t, "Opener", snap.Ledger.PlayerName)
	assert.Equal(t, 5.0, snap.Ledger.CurrentBid)
	assert.Equal(t, 20, snap.Ledger.TimeRemaining)

	p, err := f.players.GetPlayer(ctx, "cricket", "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PlayerStatusUpNext, p.Status)

	_, err = f.app.StartBidding(ctx, id, auctioneer)
	require.NoError(t, err)

	snap, err = f.app.ConfirmBid(ctx, id, auctioneer, "t1")
	require.NoError(t, err)
	assert.Equal(t, 5.25, snap.Ledger.CurrentBid)

	snap, err = f.app.ConfirmBid(ctx, id, auctioneer, "t2")
	require.NoError(t, err)
	assert.Equal(t, 5.5, snap.Ledger.CurrentBid)
	assert.Equal(t, "Mumbai", snap.Ledger.HighestBidder.TeamName)

	snap, err = f.app.SubmitJumpBid(ctx, id, auctioneer, "t1", 7)
	require.NoError(t, err)
	assert.Equal(t, 7.0, snap.Ledger.CurrentBid)
	require.Len(t, snap.Ledger.BidHistory, 3)
	assert.Equal(t, models.BidKindJump, snap.Ledger.BidHistory[2].Kind)

	snap, err = f.app.MarkSold(ctx, id, auctioneer)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerStateSold, snap.Ledger.State)
	assert.Equal(t, []string{"p2", "p3"}, snap.Session.PlayerPool)
	assert.Equal(t, []string{"p1"}, snap.Session.CompletedPlayerIDs)
	require.Len(t, snap.Results, 1)
	assert.Equal(t, 7.0, snap.Results[0].FinalPrice)
	assert.Equal(t, 5.0, snap.Results[0].BasePrice)

	team, err := f.teams.GetTeam(ctx, "cricket", "t1")
	require.NoError(t, err)
	assert.Equal(t, 93.0, team.PurseRemaining)
	assert.Equal(t, []string{"p1"}, team.PlayerIDs)

	p, err = f.players.GetPlayer(ctx, "cricket", "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PlayerStatusSold, p.Status)
	assert.Equal(t, "t1", p.TeamID)

	bids, err := f.app.PlayerHistory(id, "p1")
	require.NoError(t, err)
	assert.Len(t, bids, 3)

	assert.Equal(t, []string{
		"SessionStarted", "PlayerSelected", "BiddingStarted",
		"BidPlaced", "BidPlaced", "BidPlaced", "PlayerSold",
	}, f.outbox.recorded())
	assert.GreaterOrEqual(t, f.notifier.notified(), 7)
}

func TestUnsoldLeavesPoolWithoutPurseEffect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t)
	f.openLot(t, id, "p2")

	snap, err := f.app.MarkUnsold(ctx, id, auctioneer)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerStateUnsold, snap.Ledger.State)
	assert.NotContains(t, snap.Session.PlayerPool, "p2")
	assert.Equal(t, models.LotOutcomeUnsold, snap.Results[0].Status)

	p, err := f.players.GetPlayer(ctx, "cricket", "p2")
	require.NoError(t, err)
	assert.Equal(t, models.PlayerStatusUnsold, p.Status)

	// an unsold player is not offered again
	_, err = f.app.SelectPlayer(ctx, id, auctioneer, SelectPlayerRequest{PlayerID: "p2"})
	assert.ErrorIs(t, err, ErrPlayerNotInPool)
}

func TestRoleGating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t)

	for _, caller := range []Caller{viewer, admin, otherAuct} {
		_, err := f.app.SelectPlayer(ctx, id, caller, SelectPlayerRequest{PlayerID: "p1"})
		assert.ErrorIs(t, err, ErrUnauthorized, caller.ID)
		_, err = f.app.EndSession(ctx, id, caller)
		assert.ErrorIs(t, err, ErrUnauthorized, caller.ID)
	}

	// role is checked before the session is looked up
	_, err := f.app.StartBidding(ctx, uuid.New(), viewer)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.app.StartBidding(ctx, uuid.New(), auctioneer)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStateMachineRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t)

	_, err := f.app.StartBidding(ctx, id, auctioneer)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.app.SelectPlayer(ctx, id, auctioneer, SelectPlayerRequest{PlayerID: "nobody"})
	assert.ErrorIs(t, err, ErrPlayerNotInPool)

	_, err = f.app.SelectPlayer(ctx, id, auctioneer, SelectPlayerRequest{PlayerID: "p1"})
	require.NoError(t, err)
	_, err = f.app.SelectPlayer(ctx, id, auctioneer, SelectPlayerRequest{PlayerID: "p2"})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.app.ConfirmBid(ctx, id, auctioneer, "t1")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.app.StartBidding(ctx, id, auctioneer)
	require.NoError(t, err)

	_, err = f.app.MarkSold(ctx, id, auctioneer)
	assert.ErrorIs(t, err, ErrNoBidsPlaced)

	_, err = f.app.ConfirmBid(ctx, id, auctioneer, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.app.SubmitJumpBid(ctx, id, auctioneer, "t1", 5.1)
	assert.ErrorIs(t, err, ErrInvalidBidAmount)

	_, err = f.app.ResumeBidding(ctx, id, auctioneer)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestInsufficientPurseLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t)
	f.openLot(t, id, "p1")

	before, err := f.app.Session(id)
	require.NoError(t, err)

	_, err = f.app.ConfirmBid(ctx, id, auctioneer, "t3")
	assert.ErrorIs(t, err, ErrInsufficientPurse)
	assert.Equal(t, "InsufficientPurse", Kind(err))

	after, err := f.app.Session(id)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
	assert.Nil(t, after.Ledger.HighestBidder)
	assert.Empty(t, after.Ledger.BidHistory)
	assert.Equal(t, 5.0, after.Ledger.CurrentBid)
}

func TestFailedSaleIsCompensated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t)
	f.openLot(t, id, "p1")
	_, err := f.app.ConfirmBid(ctx, id, auctioneer, "t1")
	require.NoError(t, err)

	f.outbox.setFailOn("PlayerSold")
	_, err = f.app.MarkSold(ctx, id, auctioneer)
	require.Error(t, err)
	assert.Equal(t, KindInternal, Kind(err))

	team, err := f.teams.GetTeam(ctx, "cricket", "t1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, team.PurseRemaining)
	assert.Empty(t, team.PlayerIDs)

	p, err := f.players.GetPlayer(ctx, "cricket", "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PlayerStatusUpNext, p.Status)

	snap, err := f.app.Session(id)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerStateLive, snap.Ledger.State)
	assert.Contains(t, snap.Session.PlayerPool, "p1")

	f.outbox.setFailOn("")
	snap, err = f.app.MarkSold(ctx, id, auctioneer)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerStateSold, snap.Ledger.State)
}

func TestPersistFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t)

	f.sessions.mu.Lock()
	f.sessions.fail = true
	f.sessions.mu.Unlock()

	_, err := f.app.SelectPlayer(ctx, id, auctioneer, SelectPlayerRequest{PlayerID: "p1"})
	require.Error(t, err)

	snap, err := f.app.Session(id)
	require.NoError(t, err)
	assert.Nil(t, snap.Ledger)

	p, err := f.players.GetPlayer(ctx, "cricket", "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PlayerStatusAvailable, p.Status)
}

func TestPauseResumeKeepsRemainingTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t)
	f.openLot(t, id, "p1")

	f.clock.Advance(5 * time.Second)
	snap, err := f.app.PauseBidding(ctx, id, auctioneer)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerStatePaused, snap.Ledger.State)
	assert.Equal(t, 15, snap.Ledger.TimeRemaining)

	f.clock.Advance(time.Minute)
	snap, err = f.app.Session(id)
	require.NoError(t, err)
	assert.Equal(t, 15, snap.Ledger.TimeRemaining)

	snap, err = f.app.ResumeBidding(ctx, id, auctioneer)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerStateLive, snap.Ledger.State)
	assert.Equal(t, 15, snap.Ledger.TimeRemaining)
	assert.Equal(t, f.clock.Now().Add(-5*time.Second), *snap.Ledger.TimerStartedAt)

	f.clock.Advance(4 * time.Second)
	snap, err = f.app.Session(id)
	require.NoError(t, err)
	assert.Equal(t, 11, snap.Ledger.TimeRemaining)
}

func TestTimerExpiryIsAdvisory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t)
	f.openLot(t, id, "p1")

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(waitCtx, 1))
	f.clock.Advance(20 * time.Second)

	require.Eventually(t, func() bool {
		for _, typ := range f.outbox.recorded() {
			if typ == "BiddingTimerExpired" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	snap, err := f.app.Session(id)
	require.NoError(t, err)
	assert.Equal(t, models.LedgerStateLive, snap.Ledger.State)
	assert.Equal(t, 0, snap.Ledger.TimeRemaining)

	// bids are still accepted after expiry and restart the countdown
	snap, err = f.app.ConfirmBid(ctx, id, auctioneer, "t2")
	require.NoError(t, err)
	assert.Equal(t, 20, snap.Ledger.TimeRemaining)
}

func TestConcurrentBidsAreSerialized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t)
	f.openLot(t, id, "p3")

	const bidders = 12
	var wg sync.WaitGroup
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			team := "t1"
			if i%2 == 1 {
				team = "t2"
			}
			_, err := f.app.ConfirmBid(ctx, id, auctioneer, team)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	snap, err := f.app.Session(id)
	require.NoError(t, err)
	require.Len(t, snap.Ledger.BidHistory, bidders)
	for i := 1; i < bidders; i++ {
		assert.Greater(t, snap.Ledger.BidHistory[i].BidAmount, snap.Ledger.BidHistory[i-1].BidAmount)
	}
	assert.Equal(t, 4.0, snap.Ledger.CurrentBid)
	last := snap.Ledger.BidHistory[bidders-1]
	assert.Equal(t, last.TeamID, snap.Ledger.HighestBidder.TeamID)
}

func TestEndSessionArchivesResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.start(t)

	f.openLot(t, id, "p1")
	_, err := f.app.ConfirmBid(ctx, id, auctioneer, "t1")
	require.NoError(t, err)
	_, err = f.app.MarkSold(ctx, id, auctioneer)
	require.NoError(t, err)

	// open lot is discarded on end
	f.openLot(t, id, "p2")
	f.clock.Advance(time.Hour)

	snap, err := f.app.EndSession(ctx, id, auctioneer)
	require.NoError(t, err)
	assert.Nil(t, snap.Ledger)

	_, err = f.app.Session(id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.app.SessionForAuctioneer("u1")
	assert.ErrorIs(t, err, ErrNotFound)

	p2, err := f.players.GetPlayer(ctx, "cricket", "p2")
	require.NoError(t, err)
	assert.Equal(t, models.PlayerStatusAvailable, p2.Status)

	result, err := f.history.Result(ctx, history.Viewer{Role: models.RoleAdmin}, "a1")
	require.NoError(t, err)
	assert.Equal(t, id.String(), result.SessionID)
	assert.Equal(t, 1, result.Summary.PlayersSold)
	assert.Equal(t, 5.25, result.Summary.TotalSpent)
	assert.Equal(t, time.Hour.Milliseconds(), result.TotalDuration)

	auction, err := f.auctions.GetAuction(ctx, "cricket", "a1")
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusCompleted, auction.Status)

	// the auctioneer may start again
	_, err = f.app.StartSession(ctx, auctioneer, StartSessionRequest{Sport: "cricket", TeamIDs: []string{"t1"}})
	require.NoError(t, err)
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{nil, ""},
		{fmt.Errorf("wrapped: %w", ErrUnauthorized), "Unauthorized"},
		{ErrInvalidState, "InvalidState"},
		{ErrInsufficientPurse, "InsufficientPurse"},
		{fmt.Errorf("x: %w", teams.ErrInsufficientPurse), "InsufficientPurse"},
		{ErrInvalidBidAmount, "InvalidBidAmount"},
		{ErrNoBidsPlaced, "NoBidsPlaced"},
		{ErrPlayerNotInPool, "PlayerNotInPool"},
		{ErrAlreadyActive, "AlreadyActive"},
		{ErrNotFound, "NotFound"},
		{fmt.Errorf("x: %w", player.ErrNotFound), "NotFound"},
		{ErrInvalidRequest, "InvalidRequest"},
		{errors.New("disk on fire"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, Kind(tt.err), fmt.Sprint(tt.err))
	}
}

func TestNotifiersFanOut(t *testing.T) {
	var ns Notifiers
	a, b := &fakeNotifier{}, &fakeNotifier{}
	ns.Notify(uuid.New())

	ns.Add(a)
	ns.Add(b)
	ns.Notify(uuid.New())

	assert.Equal(t, 1, a.notified())
	assert.Equal(t, 1, b.notified())
}
