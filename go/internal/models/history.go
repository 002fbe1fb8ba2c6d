package models

import "time"

// HistoryAction names an entry in the append-only action log.
type HistoryAction string

const (
	ActionSessionStarted HistoryAction = "SESSION_STARTED"
	ActionPlayerSelected HistoryAction = "PLAYER_SELECTED"
	ActionPlayerSold     HistoryAction = "PLAYER_SOLD"
	ActionPlayerUnsold   HistoryAction = "PLAYER_UNSOLD"
	ActionSessionEnded   HistoryAction = "SESSION_ENDED"
)

// HistoryEntry is a single action log record
type HistoryEntry struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Action    HistoryAction          `json:"action"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// LotOutcome is how a player's lot finished.
type LotOutcome string

const (
	LotOutcomeSold   LotOutcome = "SOLD"
	LotOutcomeUnsold LotOutcome = "UNSOLD"
)

// PlayerResult records how one lot finished
type PlayerResult struct {
	PlayerID   string     `json:"playerId"`
	PlayerName string     `json:"playerName"`
	Status     LotOutcome `json:"status"`
	BasePrice  float64    `json:"basePrice"`
	FinalPrice float64    `json:"finalPrice"`
	TeamID     string     `json:"teamId,omitempty"`
	TeamName   string     `json:"teamName,omitempty"`
	Bids       []BidEntry `json:"bids"`
	ClosedAt   time.Time  `json:"closedAt"`
}

// AuctionResult is the archived record of a completed session.
type AuctionResult struct {
	ID            string         `json:"id"`
	AuctionID     string         `json:"auctionId"`
	SessionID     string         `json:"sessionId"`
	Sport         string         `json:"sport"`
	AuctionName   string         `json:"auctionName"`
	AuctioneerID  string         `json:"auctioneerId"`
	StartedAt     time.Time      `json:"startedAt"`
	CompletedAt   time.Time      `json:"completedAt"`
	TotalDuration int64          `json:"totalDuration"`
	PlayerResults []PlayerResult `json:"playerResults"`
	Summary       ResultSummary  `json:"summary"`
}

// ResultSummary holds per-auction totals
type ResultSummary struct {
	TotalPlayers  int     `json:"totalPlayers"`
	PlayersSold   int     `json:"playersSold"`
	PlayersUnsold int     `json:"playersUnsold"`
	TotalSpent    float64 `json:"totalSpent"`
	HighestSale   float64 `json:"highestSale"`
}

// HistoryStats aggregates every archived auction.
type HistoryStats struct {
	TotalAuctions      int                     `json:"totalAuctions"`
	TotalPlayersSold   int                     `json:"totalPlayersSold"`
	TotalPlayersUnsold int                     `json:"totalPlayersUnsold"`
	TotalValue         float64                 `json:"totalValue"`
	AverageDuration    int64                   `json:"averageDuration"`
	TopSales           []TopSale               `json:"topSales"`
	SportBreakdown     map[string]SportStats   `json:"sportBreakdown"`
	MonthlyBreakdown   map[string]MonthlyStats `json:"monthlyBreakdown"`
}

// TopSale is one of the most expensive purchases
type TopSale struct {
	PlayerID    string    `json:"playerId"`
	PlayerName  string    `json:"playerName"`
	TeamName    string    `json:"teamName"`
	Price       float64   `json:"price"`
	AuctionName string    `json:"auctionName"`
	Sport       string    `json:"sport"`
	Date        time.Time `json:"date"`
}

type SportStats struct {
	Auctions    int     `json:"auctions"`
	PlayersSold int     `json:"playersSold"`
	TotalValue  float64 `json:"totalValue"`
}

type MonthlyStats struct {
	Auctions   int     `json:"auctions"`
	TotalValue float64 `json:"totalValue"`
}
