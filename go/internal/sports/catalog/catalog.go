// Package catalog links every sport plugin into the binary and
// initializes the ones enabled by configuration.
package catalog

import (
	"fmt"

	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/sports/base"
	"github.com/rs/zerolog/log"

	_ "github.com/mcdev12/auctionhouse/go/internal/sports/baseball"
	_ "github.com/mcdev12/auctionhouse/go/internal/sports/basketball"
	_ "github.com/mcdev12/auctionhouse/go/internal/sports/cricket"
	_ "github.com/mcdev12/auctionhouse/go/internal/sports/football"
	_ "github.com/mcdev12/auctionhouse/go/internal/sports/volleyball"
)

// Catalog resolves sport defaults for the enabled sports
type Catalog struct {
	enabled map[string]base.SportPlugin
	keys    []string
}

// Enable initializes the given sports. An empty list enables every
// registered sport.
func Enable(keys []string) (*Catalog, error) {
	if len(keys) == 0 {
		keys = base.RegisteredKeys()
	}
	c := &Catalog{enabled: make(map[string]base.SportPlugin, len(keys))}
	for _, key := range keys {
		if err := base.InitializePlugin(key); err != nil {
			return nil, err
		}
		plugin, err := base.GetPlugin(key)
		if err != nil {
			return nil, err
		}
		c.enabled[key] = plugin
		c.keys = append(c.keys, key)
		log.Info().Str("sport", key).Msg("sport plugin enabled")
	}
	return c, nil
}

// Sports lists the enabled sport keys
func (c *Catalog) Sports() []string {
	return append([]string(nil), c.keys...)
}

// Plugin returns the enabled plugin for a sport
func (c *Catalog) Plugin(sport string) (base.SportPlugin, error) {
	plugin, ok := c.enabled[sport]
	if !ok {
		return nil, fmt.Errorf("sport %q is not enabled", sport)
	}
	return plugin, nil
}

// DefaultBidSlabs returns the sport's slab table, or nil when the sport
// is not enabled.
func (c *Catalog) DefaultBidSlabs(sport string) []models.BidSlab {
	plugin, err := c.Plugin(sport)
	if err != nil {
		return nil
	}
	return plugin.DefaultBidSlabs()
}

// DefaultTimerSeconds returns the sport's bid timer, or 0 when the sport
// is not enabled.
func (c *Catalog) DefaultTimerSeconds(sport string) int {
	plugin, err := c.Plugin(sport)
	if err != nil {
		return 0
	}
	return int(plugin.DefaultTimer().Seconds())
}
