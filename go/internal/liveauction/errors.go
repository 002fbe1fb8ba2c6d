package liveauction

import (
	"errors"
	"fmt"

	"github.com/mcdev12/auctionhouse/go/internal/auctions"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction/ledger"
	"github.com/mcdev12/auctionhouse/go/internal/player"
	"github.com/mcdev12/auctionhouse/go/internal/store"
	"github.com/mcdev12/auctionhouse/go/internal/teams"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidState      = ledger.ErrInvalidState
	ErrInsufficientPurse = ledger.ErrInsufficientPurse
	ErrInvalidBidAmount  = ledger.ErrInvalidBidAmount
	ErrNoBidsPlaced      = ledger.ErrNoBidsPlaced
	ErrPlayerNotInPool   = errors.New("player not in pool")
	ErrAlreadyActive     = errors.New("auctioneer already has an active session")
	ErrNotFound          = errors.New("not found")
	ErrInvalidRequest    = errors.New("invalid request")
)

// KindInternal is reported for errors outside the taxonomy, such as
// store I/O failures.
const KindInternal = "Internal"

var kinds = []struct {
	err  error
	name string
}{
	{ErrUnauthorized, "Unauthorized"},
	{ErrInvalidState, "InvalidState"},
	{ErrInsufficientPurse, "InsufficientPurse"},
	{teams.ErrInsufficientPurse, "InsufficientPurse"},
	{ErrInvalidBidAmount, "InvalidBidAmount"},
	{ErrNoBidsPlaced, "NoBidsPlaced"},
	{ErrPlayerNotInPool, "PlayerNotInPool"},
	{ErrAlreadyActive, "AlreadyActive"},
	{ErrNotFound, "NotFound"},
	{teams.ErrNotFound, "NotFound"},
	{player.ErrNotFound, "NotFound"},
	{auctions.ErrNotFound, "NotFound"},
	{ErrInvalidRequest, "InvalidRequest"},
}

// Kind maps an error returned by App to its taxonomy name. Nil maps to "".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return KindInternal
}

// lookupErr converts a collaborator lookup failure into ErrNotFound when
// the entity is missing and leaves other failures as Internal.
func lookupErr(what, id string, err error) error {
	if errors.Is(err, teams.ErrNotFound) ||
		errors.Is(err, player.ErrNotFound) ||
		errors.Is(err, auctions.ErrNotFound) ||
		errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return fmt.Errorf("failed to get %s %s: %w", what, id, err)
}
