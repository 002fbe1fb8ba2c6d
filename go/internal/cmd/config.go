package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionhouse/go/internal/config"
)

// setupLogging configures the global zerolog logger. LOG_FORMAT=json
// switches off the console writer.
func setupLogging(cfg *config.Config) {
	if getEnv("LOG_FORMAT", "console") != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
