package volleyball

import (
	"fmt"
	"math"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/liveauction/slab"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/sports/base"
)

// VolleyballPlugin implements the SportPlugin interface for Volleyball.
type VolleyballPlugin struct {
	timer time.Duration
	slabs []models.BidSlab
	squad int
}

func init() {
	if err := base.RegisterPlugin("volleyball", &VolleyballPlugin{}); err != nil {
		panic(fmt.Sprintf("Failed to register volleyball plugin: %v", err))
	}
}

// Init loads the volleyball auction defaults.
func (p *VolleyballPlugin) Init() error {
	p.timer = 15 * time.Second
	p.squad = 14
	p.slabs = []models.BidSlab{
		{MaxPrice: 2, Increment: 0.1},
		{MaxPrice: 5, Increment: 0.25},
		{MaxPrice: math.Inf(1), Increment: 0.5},
	}
	return slab.Validate(p.slabs)
}

func (p *VolleyballPlugin) Name() string { return "Volleyball" }

func (p *VolleyballPlugin) DefaultBidSlabs() []models.BidSlab {
	return append([]models.BidSlab(nil), p.slabs...)
}

func (p *VolleyballPlugin) DefaultTimer() time.Duration { return p.timer }

func (p *VolleyballPlugin) PlayerRoles() []string {
	return []string{"Setter", "Outside Hitter", "Opposite", "Middle Blocker", "Libero"}
}

func (p *VolleyballPlugin) SquadSize() int { return p.squad }
