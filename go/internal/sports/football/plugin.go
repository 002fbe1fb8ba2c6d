package football

import (
	"fmt"
	"math"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/liveauction/slab"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/sports/base"
)

// FootballPlugin implements the SportPlugin interface for Football.
type FootballPlugin struct {
	timer time.Duration
	slabs []models.BidSlab
	squad int
}

func init() {
	if err := base.RegisterPlugin("football", &FootballPlugin{}); err != nil {
		panic(fmt.Sprintf("Failed to register football plugin: %v", err))
	}
}

// Init loads the football auction defaults.
func (p *FootballPlugin) Init() error {
	p.timer = 20 * time.Second
	p.squad = 25
	p.slabs = []models.BidSlab{
		{MaxPrice: 10, Increment: 0.25},
		{MaxPrice: 20, Increment: 0.5},
		{MaxPrice: math.Inf(1), Increment: 1},
	}
	return slab.Validate(p.slabs)
}

func (p *FootballPlugin) Name() string { return "Football" }

func (p *FootballPlugin) DefaultBidSlabs() []models.BidSlab {
	return append([]models.BidSlab(nil), p.slabs...)
}

func (p *FootballPlugin) DefaultTimer() time.Duration { return p.timer }

func (p *FootballPlugin) PlayerRoles() []string {
	return []string{"Goalkeeper", "Defender", "Midfielder", "Forward"}
}

func (p *FootballPlugin) SquadSize() int { return p.squad }
