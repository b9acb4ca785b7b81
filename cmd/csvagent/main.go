package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/csvagent/csvagent/internal/config"
	"github.com/csvagent/csvagent/internal/dataset"
	"github.com/csvagent/csvagent/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogger(cfg)

	// The dataset must load before anything listens: a bad source is fatal.
	ds, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load dataset")
	}

	srv, err := server.New(cfg, ds)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("addr", cfg.Host).
		Int("port", cfg.Port).
		Str("environment", cfg.Environment).
		Msg("server starting")

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("server stopped")
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
