// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/relabs-tech/vital_tracker/internal/app"
	"github.com/relabs-tech/vital_tracker/internal/config"
	"github.com/relabs-tech/vital_tracker/internal/logging"
)

func main() {
	config.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	cfg, err := config.LoadFromFlags(pflag.CommandLine)
	if err != nil {
		boot := logging.NewConsole("info")
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.NewConsole(cfg.LogLevel)
	logger.Info().Msg("starting vital-tracker console (MQTT subscriber)")

	if err := app.RunConsole(cfg, logger, os.Stdout); err != nil {
		logger.Fatal().Err(err).Msg("fatal")
	}
}
