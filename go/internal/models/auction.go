package models

import (
	"encoding/json"
	"math"
	"time"
)

// AuctionStatus defines the lifecycle of an auction record.
type AuctionStatus string

const (
	AuctionStatusCreated   AuctionStatus = "CREATED"
	AuctionStatusReady     AuctionStatus = "READY"
	AuctionStatusLive      AuctionStatus = "LIVE"
	AuctionStatusCompleted AuctionStatus = "COMPLETED"
)

// Auction is the record an admin creates and assigns to an auctioneer.
type Auction struct {
	ID                 string        `json:"id"`
	Sport              string        `json:"sport"`
	Name               string        `json:"name"`
	Date               string        `json:"date,omitempty"`
	Status             AuctionStatus `json:"status"`
	AssignedAuctioneer string        `json:"assignedAuctioneer,omitempty"`
	TeamIDs            []string      `json:"teamIds"`
	PlayerPool         []string      `json:"playerPool"`
	BidSlabs           []BidSlab     `json:"bidSlabs,omitempty"`
	TimerDuration      int           `json:"timerDuration,omitempty"`
	StartedAt          *time.Time    `json:"startedAt,omitempty"`
	CompletedAt        *time.Time    `json:"completedAt,omitempty"`
}

// BidSlab maps a price band to its bid increment. The last slab of a
// list is unbounded regardless of MaxPrice.
type BidSlab struct {
	MaxPrice  float64 `json:"maxPrice"`
	Increment float64 `json:"increment"`
}

type bidSlabJSON struct {
	MaxPrice  *float64 `json:"maxPrice"`
	Increment float64  `json:"increment"`
}

// MarshalJSON encodes an infinite MaxPrice as null.
func (s BidSlab) MarshalJSON() ([]byte, error) {
	out := bidSlabJSON{Increment: s.Increment}
	if !math.IsInf(s.MaxPrice, 1) {
		max := s.MaxPrice
		out.MaxPrice = &max
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null or missing MaxPrice as +Inf.
func (s *BidSlab) UnmarshalJSON(data []byte) error {
	var in bidSlabJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Increment = in.Increment
	if in.MaxPrice == nil {
		s.MaxPrice = math.Inf(1)
	} else {
		s.MaxPrice = *in.MaxPrice
	}
	return nil
}
