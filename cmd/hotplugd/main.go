// Hotplugd Core
// Copyright (c) 2026 The Hotplug Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Hotplugd Core.
//
// Hotplugd Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Hotplugd Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Hotplugd Core.  If not, see <http://www.gnu.org/licenses/>.

//go:build linux

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/HotplugProject/hotplugd-core/pkg/config"
	"github.com/HotplugProject/hotplugd-core/pkg/helpers"
	"github.com/HotplugProject/hotplugd-core/pkg/service"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	configDir := flag.String(
		"config",
		"/etc/hotplugd",
		"configuration directory",
	)
	logDir := flag.String(
		"log-dir",
		"/var/log",
		"log directory",
	)
	foreground := flag.Bool(
		"foreground",
		false,
		"log to the console as well as the log file",
	)
	debug := flag.Bool(
		"debug",
		false,
		"enable debug logging",
	)
	flag.Parse()

	fs := afero.NewOsFs()
	cfg, err := config.NewConfig(fs, *configDir, config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *foreground {
		helpers.SetupLogging(*logDir, *debug || cfg.DebugLogging(),
			zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		helpers.SetupLogging(*logDir, *debug || cfg.DebugLogging())
	}

	svc, err := service.New(cfg, service.Options{Fs: fs})
	if err != nil {
		return fmt.Errorf("failed to start device manager: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("device manager starting")
	return svc.Run(ctx)
}
