package baseball

import (
	"fmt"
	"math"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/liveauction/slab"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/sports/base"
)

// BaseballPlugin implements the SportPlugin interface for Baseball.
type BaseballPlugin struct {
	timer time.Duration
	slabs []models.BidSlab
	squad int
}

func init() {
	if err := base.RegisterPlugin("baseball", &BaseballPlugin{}); err != nil {
		panic(fmt.Sprintf("Failed to register baseball plugin: %v", err))
	}
}

// Init loads the baseball auction defaults.
func (p *BaseballPlugin) Init() error {
	p.timer = 20 * time.Second
	p.squad = 26
	p.slabs = []models.BidSlab{
		{MaxPrice: 10, Increment: 0.5},
		{MaxPrice: math.Inf(1), Increment: 1},
	}
	return slab.Validate(p.slabs)
}

func (p *BaseballPlugin) Name() string { return "Baseball" }

func (p *BaseballPlugin) DefaultBidSlabs() []models.BidSlab {
	return append([]models.BidSlab(nil), p.slabs...)
}

func (p *BaseballPlugin) DefaultTimer() time.Duration { return p.timer }

func (p *BaseballPlugin) PlayerRoles() []string {
	return []string{"Pitcher", "Catcher", "Infielder", "Outfielder", "Designated Hitter"}
}

func (p *BaseballPlugin) SquadSize() int { return p.squad }
