package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event payload types shared between the live auction core, the outbox
// relay and the gateway.

// EventType names a live auction domain event
type EventType string

const (
	EventTypeSessionStarted      EventType = "SessionStarted"
	EventTypePlayerSelected      EventType = "PlayerSelected"
	EventTypeBiddingStarted      EventType = "BiddingStarted"
	EventTypeBidPlaced           EventType = "BidPlaced"
	EventTypeBiddingPaused       EventType = "BiddingPaused"
	EventTypeBiddingResumed      EventType = "BiddingResumed"
	EventTypeBiddingTimerExpired EventType = "BiddingTimerExpired"
	EventTypePlayerSold          EventType = "PlayerSold"
	EventTypePlayerUnsold        EventType = "PlayerUnsold"
	EventTypeSessionEnded        EventType = "SessionEnded"
)

// SessionStartedPayload is the payload for a SessionStarted event
type SessionStartedPayload struct {
	SessionID     string    `json:"session_id"`
	AuctionID     string    `json:"auction_id"`
	Sport         string    `json:"sport"`
	AuctioneerID  string    `json:"auctioneer_id"`
	TeamCount     int       `json:"team_count"`
	PoolSize      int       `json:"pool_size"`
	TimerDuration int       `json:"timer_duration"`
	StartedAt     time.Time `json:"started_at"`
}

// PlayerSelectedPayload is the payload for a PlayerSelected event
type PlayerSelectedPayload struct {
	SessionID  string    `json:"session_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	BasePrice  float64   `json:"base_price"`
	SelectedAt time.Time `json:"selected_at"`
}

// BiddingStartedPayload is the payload for a BiddingStarted event
type BiddingStartedPayload struct {
	SessionID      string    `json:"session_id"`
	PlayerID       string    `json:"player_id"`
	TimerStartedAt time.Time `json:"timer_started_at"`
	TimerDuration  int       `json:"timer_duration"`
}

// BidPlacedPayload is the payload for a BidPlaced event
type BidPlacedPayload struct {
	SessionID string    `json:"session_id"`
	PlayerID  string    `json:"player_id"`
	BidID     string    `json:"bid_id"`
	TeamID    string    `json:"team_id"`
	TeamName  string    `json:"team_name"`
	Amount    float64   `json:"amount"`
	Kind      string    `json:"kind"`
	PlacedAt  time.Time `json:"placed_at"`
}

// BiddingPausedPayload is the payload for a BiddingPaused event
type BiddingPausedPayload struct {
	SessionID        string    `json:"session_id"`
	PlayerID         string    `json:"player_id"`
	RemainingSeconds float64   `json:"remaining_seconds"`
	PausedAt         time.Time `json:"paused_at"`
}

// BiddingResumedPayload is the payload for a BiddingResumed event
type BiddingResumedPayload struct {
	SessionID      string    `json:"session_id"`
	PlayerID       string    `json:"player_id"`
	TimerStartedAt time.Time `json:"timer_started_at"`
	ResumedAt      time.Time `json:"resumed_at"`
}

// BiddingTimerExpiredPayload is the payload for a BiddingTimerExpired event.
// The lot stays LIVE; the auctioneer decides what happens next.
type BiddingTimerExpiredPayload struct {
	SessionID  string    `json:"session_id"`
	PlayerID   string    `json:"player_id"`
	CurrentBid float64   `json:"current_bid"`
	HasBids    bool      `json:"has_bids"`
	ExpiredAt  time.Time `json:"expired_at"`
}

// PlayerSoldPayload is the payload for a PlayerSold event
type PlayerSoldPayload struct {
	SessionID  string    `json:"session_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	TeamID     string    `json:"team_id"`
	TeamName   string    `json:"team_name"`
	Amount     float64   `json:"amount"`
	SoldAt     time.Time `json:"sold_at"`
}

// PlayerUnsoldPayload is the payload for a PlayerUnsold event
type PlayerUnsoldPayload struct {
	SessionID  string    `json:"session_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	ClosedAt   time.Time `json:"closed_at"`
}

// SessionEndedPayload is the payload for a SessionEnded event
type SessionEndedPayload struct {
	SessionID     string    `json:"session_id"`
	AuctionID     string    `json:"auction_id"`
	PlayersSold   int       `json:"players_sold"`
	PlayersUnsold int       `json:"players_unsold"`
	TotalSpent    float64   `json:"total_spent"`
	Duration      string    `json:"duration"`
	EndedAt       time.Time `json:"ended_at"`
}

// ParsePayload decodes event data into the payload struct for its type
func ParsePayload(eventType EventType, data json.RawMessage) (interface{}, error) {
	var payload interface{}
	switch eventType {
	case EventTypeSessionStarted:
		payload = &SessionStartedPayload{}
	case EventTypePlayerSelected:
		payload = &PlayerSelectedPayload{}
	case EventTypeBiddingStarted:
		payload = &BiddingStartedPayload{}
	case EventTypeBidPlaced:
		payload = &BidPlacedPayload{}
	case EventTypeBiddingPaused:
		payload = &BiddingPausedPayload{}
	case EventTypeBiddingResumed:
		payload = &BiddingResumedPayload{}
	case EventTypeBiddingTimerExpired:
		payload = &BiddingTimerExpiredPayload{}
	case EventTypePlayerSold:
		payload = &PlayerSoldPayload{}
	case EventTypePlayerUnsold:
		payload = &PlayerUnsoldPayload{}
	case EventTypeSessionEnded:
		payload = &SessionEndedPayload{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, fmt.Errorf("failed to parse %s payload: %w", eventType, err)
	}
	return payload, nil
}
