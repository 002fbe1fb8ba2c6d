package models

// Team represents a franchise taking part in auctions
type Team struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Sport          string   `json:"sport"`
	PurseRemaining float64  `json:"purseRemaining"`
	TotalPurse     float64  `json:"totalPurse"`
	PlayerIDs      []string `json:"playerIds"`
	LogoURL        string   `json:"logoUrl,omitempty"`
}

// HasPlayer reports whether the player is already on the roster
func (t *Team) HasPlayer(playerID string) bool {
	for _, id := range t.PlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}
