// Command viewer follows a live auction from the terminal the way the
// public viewer page does: it polls the state endpoint every second and
// counts the bid timer down locally between polls.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/mcdev12/auctionhouse/go/clients/liveauction_client"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "live auction server URL")
	sessionID := flag.String("session", "", "session to follow")
	auctioneerID := flag.String("auctioneer", "", "follow the session run by this auctioneer")
	auctionID := flag.String("auction", "", "follow the session running this auction")
	interval := flag.Duration("interval", liveauction_client.DefaultPollInterval, "poll interval")
	maxFailures := flag.Int("max-failures", 30, "give up after this many consecutive failed polls")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v := &viewer{out: os.Stdout}
	client := liveauction_client.NewClient(*server, "", "")
	poller := liveauction_client.NewPoller(client, liveauction_client.PollerConfig{
		Query: liveauction_client.StateQuery{
			SessionID:    *sessionID,
			AuctioneerID: *auctioneerID,
			AuctionID:    *auctionID,
		},
		Interval:    *interval,
		MaxFailures: *maxFailures,
		OnState:     v.state,
		OnTick:      v.tick,
	})

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("viewer stopped")
	}
}

// viewer prints a line whenever the lot changes and the countdown while
// it runs
type viewer struct {
	out     io.Writer
	version uint64
	lastRem int
}

func (v *viewer) state(s *liveauction_client.State) {
	if s.Version == v.version && s.Version != 0 {
		return
	}
	v.version = s.Version
	fmt.Fprintln(v.out, describe(s))
}

func (v *viewer) tick(remaining int) {
	if remaining == v.lastRem {
		return
	}
	v.lastRem = remaining
	if remaining > 0 {
		fmt.Fprintf(v.out, "  %2ds\n", remaining)
	}
}

func describe(s *liveauction_client.State) string {
	if !s.HasActiveAuction || s.Session == nil {
		return "no active auction"
	}
	l := s.Ledger
	if l == nil {
		return fmt.Sprintf("[%s] waiting for the next player", s.Session.Name)
	}

	line := fmt.Sprintf("[%s] %s %s base %s", s.Session.Name, l.State, l.PlayerName, money(l.BasePrice))
	if l.HighestBidder != nil {
		line += fmt.Sprintf(" | %s bids %s", l.HighestBidder.TeamName, money(l.CurrentBid))
	}
	if n := len(l.BidHistory); n > 0 {
		line += fmt.Sprintf(" (%d bids, last %s)", n, l.BidHistory[n-1].Timestamp.Format(time.Kitchen))
	}
	return line
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
