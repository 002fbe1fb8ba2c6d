package models

// PlayerStatus defines where a player is in the auction lifecycle.
type PlayerStatus string

const (
	PlayerStatusAvailable PlayerStatus = "AVAILABLE"
	PlayerStatusUpNext    PlayerStatus = "UP_NEXT"
	PlayerStatusSold      PlayerStatus = "SOLD"
	PlayerStatusUnsold    PlayerStatus = "UNSOLD"
)

// Player represents an athlete that can be put up for auction
type Player struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Sport      string       `json:"sport"`
	Role       string       `json:"role"`
	BasePrice  float64      `json:"basePrice"`
	CurrentBid float64      `json:"currentBid"`
	SoldPrice  *float64     `json:"soldPrice,omitempty"`
	Status     PlayerStatus `json:"status"`
	TeamID     string       `json:"teamId,omitempty"`
	ImageURL   string       `json:"imageUrl,omitempty"`
}
