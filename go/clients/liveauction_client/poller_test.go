package liveauction_client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

type stateServer struct {
	mu         sync.Mutex
	queries    []string
	bodies     []map[string]interface{}
	serverTime time.Time
}

func (s *stateServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/live-auction/state", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.queries = append(s.queries, r.URL.RawQuery)
		serverTime := s.serverTime
		s.mu.Unlock()

		started := t0
		json.NewEncoder(w).Encode(State{
			Success:          true,
			HasActiveAuction: true,
			ServerTime:       serverTime,
			Ledger: &models.TempAuctionLedger{
				State:          models.LedgerStateLive,
				PlayerID:       "p1",
				CurrentBid:     5.25,
				TimerStartedAt: &started,
				TimerDuration:  20,
			},
		})
	})
	mux.HandleFunc("/live-auction/bid", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		s.mu.Lock()
		s.bodies = append(s.bodies, body)
		s.mu.Unlock()

		if body["teamId"] == "t1" {
			w.Write([]byte(`{"success":true}`))
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"success":false,"error":"team t3 has 1.00","kind":"InsufficientPurse"}`))
	})
	return mux
}

func TestPollerRecalibratesAndTicks(t *testing.T) {
	ss := &stateServer{}
	srv := httptest.NewServer(ss.handler(t))
	defer srv.Close()

	clock := clockwork.NewFakeClockAt(t0.Add(5 * time.Second))
	var ticks []int
	var tickMu sync.Mutex
	p := NewPoller(NewClient(srv.URL, "u1", "Ravi"), PollerConfig{
		Query:    StateQuery{AuctioneerID: "u1"},
		Interval: 10 * time.Second,
		Clock:    clock,
		OnTick: func(remaining int) {
			tickMu.Lock()
			ticks = append(ticks, remaining)
			tickMu.Unlock()
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	require.Eventually(t, func() bool { return p.Remaining() == 15 }, time.Second, 5*time.Millisecond)
	require.NotNil(t, p.State())
	assert.Equal(t, "p1", p.State().Ledger.PlayerID)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return p.Remaining() == 14 }, time.Second, 5*time.Millisecond)

	p.Stop()
	p.Stop()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}

	tickMu.Lock()
	assert.Equal(t, []int{14}, ticks)
	tickMu.Unlock()

	ss.mu.Lock()
	assert.Equal(t, "auctioneerId=u1", ss.queries[0])
	ss.mu.Unlock()
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	ss := &stateServer{}
	srv := httptest.NewServer(ss.handler(t))
	defer srv.Close()

	p := NewPoller(NewClient(srv.URL, "u1", "Ravi"), PollerConfig{Clock: clockwork.NewFakeClockAt(t0)})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return p.State() != nil }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerGivesUpAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":"store offline","kind":"Internal"}`))
	}))
	defer srv.Close()

	p := NewPoller(NewClient(srv.URL, "u1", "Ravi"), PollerConfig{MaxFailures: 1, Clock: clockwork.NewFakeClockAt(t0)})
	err := p.Run(context.Background())
	require.Error(t, err)

	var actionErr *ActionError
	require.True(t, errors.As(err, &actionErr))
	assert.Equal(t, "Internal", actionErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, actionErr.StatusCode)
	assert.Nil(t, p.State())
}

func TestClientActionCarriesIdentityAndDecodesErrors(t *testing.T) {
	ss := &stateServer{}
	srv := httptest.NewServer(ss.handler(t))
	defer srv.Close()

	_, err := NewClient(srv.URL, "u1", "Ravi").Bid(context.Background(), "t3", "Kochi")
	var actionErr *ActionError
	require.True(t, errors.As(err, &actionErr))
	assert.Equal(t, "InsufficientPurse", actionErr.Kind)
	assert.Equal(t, http.StatusUnprocessableEntity, actionErr.StatusCode)

	ss.mu.Lock()
	defer ss.mu.Unlock()
	require.Len(t, ss.bodies, 1)
	assert.Equal(t, "auctioneer", ss.bodies[0]["userRole"])
	assert.Equal(t, "u1", ss.bodies[0]["auctioneerId"])
	assert.Equal(t, "t3", ss.bodies[0]["teamId"])
}

func (s *stateServer) stateReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func TestMutationRefetchesStateOnlyWhenAccepted(t *testing.T) {
	ss := &stateServer{}
	srv := httptest.NewServer(ss.handler(t))
	defer srv.Close()
	client := NewClient(srv.URL, "u1", "Ravi")

	state, err := client.Bid(context.Background(), "t1", "Chennai")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 5.25, state.Ledger.CurrentBid)
	assert.Equal(t, 1, ss.stateReads())
	ss.mu.Lock()
	assert.Equal(t, "auctioneerId=u1", ss.queries[0])
	ss.mu.Unlock()

	state, err = client.Bid(context.Background(), "t3", "Kochi")
	require.Error(t, err)
	assert.Nil(t, state)
	assert.Equal(t, 1, ss.stateReads())
}

func TestRefreshedStateFeedsPoller(t *testing.T) {
	ss := &stateServer{}
	srv := httptest.NewServer(ss.handler(t))
	defer srv.Close()

	client := NewClient(srv.URL, "u1", "Ravi")
	p := NewPoller(client, PollerConfig{Clock: clockwork.NewFakeClockAt(t0.Add(5 * time.Second))})
	client.OnRefresh(p.Apply)

	_, err := client.Bid(context.Background(), "t1", "Chennai")
	require.NoError(t, err)
	require.NotNil(t, p.State())
	assert.Equal(t, 15, p.Remaining())
}

func TestPollerUsesServerClock(t *testing.T) {
	// local clock runs 6s behind the server
	ss := &stateServer{serverTime: t0.Add(8 * time.Second)}
	srv := httptest.NewServer(ss.handler(t))
	defer srv.Close()

	p := NewPoller(NewClient(srv.URL, "u1", "Ravi"), PollerConfig{Clock: clockwork.NewFakeClockAt(t0.Add(2 * time.Second))})
	require.NoError(t, p.Poll(context.Background()))
	assert.Equal(t, 12, p.Remaining())
}
