package cricket

import (
	"fmt"
	"math"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/liveauction/slab"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/sports/base"
)

// CricketPlugin implements the SportPlugin interface for cricket.
type CricketPlugin struct {
	config Config
}

// Config holds cricket-specific auction defaults (prices in crores).
type Config struct {
	TimerSeconds int              `yaml:"timer_seconds"`
	BidSlabs     []models.BidSlab `yaml:"bid_slabs"`
	SquadSize    int              `yaml:"squad_size"`
}

// init registers the cricket plugin with the base registry.
func init() {
	if err := base.RegisterPlugin("cricket", &CricketPlugin{}); err != nil {
		panic(fmt.Sprintf("Failed to register cricket plugin: %v", err))
	}
}

// Init loads the cricket auction defaults.
func (p *CricketPlugin) Init() error {
	p.config = Config{
		TimerSeconds: 20,
		BidSlabs: []models.BidSlab{
			{MaxPrice: 1, Increment: 0.05},
			{MaxPrice: 2, Increment: 0.1},
			{MaxPrice: 5, Increment: 0.2},
			{MaxPrice: math.Inf(1), Increment: 0.25},
		},
		SquadSize: 25,
	}
	return slab.Validate(p.config.BidSlabs)
}

func (p *CricketPlugin) Name() string { return "Cricket" }

func (p *CricketPlugin) DefaultBidSlabs() []models.BidSlab {
	return append([]models.BidSlab(nil), p.config.BidSlabs...)
}

func (p *CricketPlugin) DefaultTimer() time.Duration {
	return time.Duration(p.config.TimerSeconds) * time.Second
}

func (p *CricketPlugin) PlayerRoles() []string {
	return []string{"Batsman", "Bowler", "All-rounder", "Wicket-keeper", "Fielder"}
}

func (p *CricketPlugin) SquadSize() int { return p.config.SquadSize }
