package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionhouse/go/internal/config"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/player"
	"github.com/mcdev12/auctionhouse/go/internal/tools/fixtures"
)

func main() {
	file := flag.String("file", "go/internal/assets/players.json", "JSON snapshot to load")
	configFile := flag.String("config", "config.yaml", "service config selecting the store")
	overwrite := flag.Bool("overwrite", false, "replace players that already exist")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// 1) Load the JSON snapshot
	items, err := fixtures.Load[models.Player](*file)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load snapshot")
	}

	// 2) Open the configured store
	ctx := context.Background()
	s, closeStore, err := fixtures.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeStore()
	app := player.NewApp(player.NewRepository(s))

	// 3) Upsert and count
	summary := fixtures.Summary{Total: len(items)}
	for _, item := range items {
		_, err := app.GetPlayer(ctx, item.Sport, item.ID)
		switch {
		case err == nil && !*overwrite:
			summary.Skipped++
			continue
		case err != nil && !errors.Is(err, player.ErrNotFound):
			log.Error().Err(err).Str("id", item.ID).Msg("lookup failed")
			summary.Errors++
			continue
		}
		if err := app.SavePlayer(ctx, item); err != nil {
			log.Error().Err(err).Str("id", item.ID).Msg("save failed")
			summary.Errors++
			continue
		}
		summary.Inserted++
	}

	// 4) Print summary
	fmt.Printf("Players seed complete: %s\n", summary)
}
