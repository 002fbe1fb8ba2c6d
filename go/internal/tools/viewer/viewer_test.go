package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mcdev12/auctionhouse/go/clients/liveauction_client"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

func TestDescribe(t *testing.T) {
	assert.Equal(t, "no active auction", describe(&liveauction_client.State{}))

	session := &models.LiveAuctionSession{Name: "Cricket 2026"}
	assert.Equal(t, "[Cricket 2026] waiting for the next player", describe(&liveauction_client.State{
		HasActiveAuction: true,
		Session:          session,
	}))

	at := time.Date(2026, 11, 1, 18, 5, 0, 0, time.UTC)
	got := describe(&liveauction_client.State{
		HasActiveAuction: true,
		Session:          session,
		Ledger: &models.TempAuctionLedger{
			State:         models.LedgerStateLive,
			PlayerName:    "Arjun Rao",
			BasePrice:     2,
			CurrentBid:    2.25,
			HighestBidder: &models.HighestBidder{TeamID: "csk", TeamName: "Chennai Kings"},
			BidHistory:    []models.BidEntry{{TeamID: "csk", BidAmount: 2.25, Timestamp: at}},
		},
	})
	assert.Equal(t, "[Cricket 2026] LIVE Arjun Rao base 2.00 | Chennai Kings bids 2.25 (1 bids, last 6:05PM)", got)
}

func TestViewerPrintsOnlyChanges(t *testing.T) {
	var out bytes.Buffer
	v := &viewer{out: &out}

	s := &liveauction_client.State{Version: 3}
	v.state(s)
	v.state(s)
	v.tick(5)
	v.tick(5)
	v.tick(0)

	assert.Equal(t, "no active auction\n   5s\n", out.String())
}
