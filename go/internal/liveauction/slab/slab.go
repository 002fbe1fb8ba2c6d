package slab

import (
	"errors"
	"fmt"
	"math"

	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/shopspring/decimal"
)

// ErrEmptySlabs is returned when a slab table has no entries
var ErrEmptySlabs = errors.New("bid slabs cannot be empty")

// Default returns the slab table used when neither the session nor the
// sport profile configures one.
func Default() []models.BidSlab {
	return []models.BidSlab{
		{MaxPrice: 10, Increment: 0.25},
		{MaxPrice: 20, Increment: 0.5},
		{MaxPrice: math.Inf(1), Increment: 1},
	}
}

// Validate checks that a slab table is usable: non-empty, positive
// whole-cent increments and strictly increasing bounds. The last slab is treated as
// unbounded so its MaxPrice is not checked.
func Validate(slabs []models.BidSlab) error {
	if len(slabs) == 0 {
		return ErrEmptySlabs
	}
	for i, s := range slabs {
		if s.Increment <= 0 || math.IsNaN(s.Increment) || math.IsInf(s.Increment, 0) {
			return fmt.Errorf("slab %d: increment must be positive, got %v", i, s.Increment)
		}
		// bids are rounded to cents, so a finer increment would leave the
		// ladder Reachable walks
		if inc := decimal.NewFromFloat(s.Increment); !inc.Equal(inc.Round(2)) {
			return fmt.Errorf("slab %d: increment %v has more than two decimal places", i, s.Increment)
		}
		if i == len(slabs)-1 {
			continue
		}
		if math.IsNaN(s.MaxPrice) || math.IsInf(s.MaxPrice, 0) {
			return fmt.Errorf("slab %d: only the last slab may be unbounded", i)
		}
		if i > 0 && s.MaxPrice <= slabs[i-1].MaxPrice {
			return fmt.Errorf("slab %d: maxPrice %v must exceed previous maxPrice %v", i, s.MaxPrice, slabs[i-1].MaxPrice)
		}
	}
	return nil
}

// IncrementFor returns the increment of the first slab whose MaxPrice is
// at or above price, falling back to the last slab.
func IncrementFor(price float64, slabs []models.BidSlab) (float64, error) {
	idx, err := indexFor(price, slabs)
	if err != nil {
		return 0, err
	}
	return slabs[idx].Increment, nil
}

// NextBid returns the next valid bid after current, rounded to two
// decimal places.
func NextBid(current float64, slabs []models.BidSlab) (float64, error) {
	inc, err := IncrementFor(current, slabs)
	if err != nil {
		return 0, err
	}
	next := decimal.NewFromFloat(current).Add(decimal.NewFromFloat(inc)).Round(2)
	f, _ := next.Float64()
	return f, nil
}

// Reachable reports whether amount can be produced from "from" by
// repeatedly applying NextBid. It walks the table one slab at a time
// instead of one bid at a time.
func Reachable(from, amount float64, slabs []models.BidSlab) bool {
	if err := Validate(slabs); err != nil {
		return false
	}
	cur := decimal.NewFromFloat(from).Round(2)
	target := decimal.NewFromFloat(amount).Round(2)

	for {
		if target.LessThan(cur) {
			return false
		}
		if target.Equal(cur) {
			return true
		}

		f, _ := cur.Float64()
		idx, _ := indexFor(f, slabs)
		inc := decimal.NewFromFloat(slabs[idx].Increment)

		if idx == len(slabs)-1 {
			return target.Sub(cur).Mod(inc).IsZero()
		}

		// Every price up to the bound steps by inc; the first step past
		// the bound is still taken from inside this slab.
		bound := decimal.NewFromFloat(slabs[idx].MaxPrice)
		steps := bound.Sub(cur).Div(inc).Floor().Add(decimal.NewFromInt(1))
		exit := cur.Add(inc.Mul(steps)).Round(2)

		if target.LessThanOrEqual(exit) {
			return target.Sub(cur).Mod(inc).IsZero()
		}
		cur = exit
	}
}

func indexFor(price float64, slabs []models.BidSlab) (int, error) {
	if len(slabs) == 0 {
		return 0, ErrEmptySlabs
	}
	for i, s := range slabs {
		if price <= s.MaxPrice {
			return i, nil
		}
	}
	return len(slabs) - 1, nil
}
