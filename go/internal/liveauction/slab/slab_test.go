package slab

import (
	"math"
	"testing"

	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementFor(t *testing.T) {
	cases := []struct {
		name  string
		price float64
		want  float64
	}{
		{name: "bottom of first slab", price: 0, want: 0.25},
		{name: "inside first slab", price: 5, want: 0.25},
		{name: "boundary belongs to lower slab", price: 10, want: 0.25},
		{name: "just past first boundary", price: 10.05, want: 0.5},
		{name: "second boundary", price: 20, want: 0.5},
		{name: "unbounded slab", price: 250, want: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := IncrementFor(tc.price, Default())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIncrementForFallsBackToLastSlab(t *testing.T) {
	slabs := []models.BidSlab{{MaxPrice: 10, Increment: 0.25}, {MaxPrice: 20, Increment: 2}}

	got, err := IncrementFor(99, slabs)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
}

func TestIncrementForEmptySlabs(t *testing.T) {
	_, err := IncrementFor(5, nil)
	assert.ErrorIs(t, err, ErrEmptySlabs)
}

func TestNextBid(t *testing.T) {
	cases := []struct {
		current float64
		want    float64
	}{
		{current: 5, want: 5.25},
		{current: 9.8, want: 10.05},
		{current: 10, want: 10.25},
		{current: 10.05, want: 10.55},
		{current: 19.75, want: 20.25},
		{current: 20.25, want: 21.25},
		{current: 0.1, want: 0.35},
	}

	for _, tc := range cases {
		got, err := NextBid(tc.current, Default())
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "next bid after %v", tc.current)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		slabs   []models.BidSlab
		wantErr bool
	}{
		{name: "default table", slabs: Default()},
		{name: "single unbounded slab", slabs: []models.BidSlab{{MaxPrice: math.Inf(1), Increment: 1}}},
		{name: "finite last slab", slabs: []models.BidSlab{{MaxPrice: 10, Increment: 1}, {MaxPrice: 5, Increment: 2}}},
		{name: "empty", slabs: nil, wantErr: true},
		{name: "zero increment", slabs: []models.BidSlab{{MaxPrice: 10, Increment: 0}, {MaxPrice: 20, Increment: 1}}, wantErr: true},
		{name: "decreasing bounds", slabs: []models.BidSlab{{MaxPrice: 20, Increment: 1}, {MaxPrice: 10, Increment: 1}, {MaxPrice: 30, Increment: 1}}, wantErr: true},
		{name: "sub-cent increment", slabs: []models.BidSlab{{MaxPrice: math.Inf(1), Increment: 0.333}}, wantErr: true},
		{name: "cent increment", slabs: []models.BidSlab{{MaxPrice: math.Inf(1), Increment: 0.33}}},
		{name: "unbounded middle slab", slabs: []models.BidSlab{{MaxPrice: math.Inf(1), Increment: 1}, {MaxPrice: 10, Increment: 1}}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.slabs)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReachable(t *testing.T) {
	cases := []struct {
		name   string
		from   float64
		amount float64
		want   bool
	}{
		{name: "same price", from: 5, amount: 5, want: true},
		{name: "one step", from: 5, amount: 5.25, want: true},
		{name: "several steps inside slab", from: 5, amount: 7.5, want: true},
		{name: "off ladder inside slab", from: 5, amount: 7.6, want: false},
		{name: "crossing first boundary", from: 9.8, amount: 10.05, want: true},
		{name: "after crossing uses wider step", from: 9.8, amount: 10.55, want: true},
		{name: "after crossing narrow step is off ladder", from: 9.8, amount: 10.3, want: false},
		{name: "into unbounded slab", from: 5, amount: 25.25, want: true},
		{name: "unbounded slab keeps offset", from: 5, amount: 25, want: false},
		{name: "below start", from: 5, amount: 4, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Reachable(tc.from, tc.amount, Default()))
		})
	}
}

func TestReachableMatchesRepeatedNextBid(t *testing.T) {
	slabs := Default()
	price := 3.0
	for i := 0; i < 80; i++ {
		next, err := NextBid(price, slabs)
		require.NoError(t, err)
		assert.True(t, Reachable(3, next, slabs), "expected %v on ladder", next)
		price = next
	}
}

func TestReachableOnCentLadder(t *testing.T) {
	slabs := []models.BidSlab{{MaxPrice: 1, Increment: 0.33}, {MaxPrice: math.Inf(1), Increment: 0.07}}
	price := 0.0
	for i := 0; i < 40; i++ {
		next, err := NextBid(price, slabs)
		require.NoError(t, err)
		assert.True(t, Reachable(0, next, slabs), "expected %v on ladder", next)
		price = next
	}
	assert.False(t, Reachable(0, 0.5, slabs))
}

func TestSubCentTableIsRejected(t *testing.T) {
	slabs := []models.BidSlab{{MaxPrice: math.Inf(1), Increment: 0.333}}

	next, err := NextBid(0, slabs)
	require.NoError(t, err)
	assert.Equal(t, 0.33, next)

	// the table never reaches a ledger, so no jump bid is judged against it
	assert.Error(t, Validate(slabs))
	assert.False(t, Reachable(0, next, slabs))
}
