// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/higuchi-learn/freelen/internal/app"
	"github.com/higuchi-learn/freelen/internal/config"
	"github.com/higuchi-learn/freelen/internal/logging"
)

func main() {
	configPath := flag.String("config", "./freelen_config.txt", "path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg := config.Get()
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	log.Info().Msg("starting freelen console (MQTT subscriber)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunConsoleMQTT(ctx, cfg, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("console stopped")
	}
}
