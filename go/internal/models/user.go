package models

// Role identifies what a caller is allowed to do.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAuctioneer Role = "auctioneer"
	RolePlayer     Role = "player"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAuctioneer, RolePlayer:
		return true
	}
	return false
}
