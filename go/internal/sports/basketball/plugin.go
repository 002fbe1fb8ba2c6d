package basketball

import (
	"fmt"
	"math"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/liveauction/slab"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/sports/base"
)

// BasketballPlugin implements the SportPlugin interface for Basketball.
type BasketballPlugin struct {
	timer time.Duration
	slabs []models.BidSlab
	squad int
}

func init() {
	if err := base.RegisterPlugin("basketball", &BasketballPlugin{}); err != nil {
		panic(fmt.Sprintf("Failed to register basketball plugin: %v", err))
	}
}

// Init loads the basketball auction defaults.
func (p *BasketballPlugin) Init() error {
	p.timer = 15 * time.Second
	p.squad = 15
	p.slabs = []models.BidSlab{
		{MaxPrice: 5, Increment: 0.25},
		{MaxPrice: 15, Increment: 0.5},
		{MaxPrice: math.Inf(1), Increment: 1},
	}
	return slab.Validate(p.slabs)
}

func (p *BasketballPlugin) Name() string { return "Basketball" }

func (p *BasketballPlugin) DefaultBidSlabs() []models.BidSlab {
	return append([]models.BidSlab(nil), p.slabs...)
}

func (p *BasketballPlugin) DefaultTimer() time.Duration { return p.timer }

func (p *BasketballPlugin) PlayerRoles() []string {
	return []string{"Point Guard", "Shooting Guard", "Small Forward", "Power Forward", "Center"}
}

func (p *BasketballPlugin) SquadSize() int { return p.squad }
