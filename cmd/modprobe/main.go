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

// Command modprobe is the kernel-invoked module loader: installed as
// /proc/sys/kernel/modprobe, it receives a modalias or module name from the
// kernel and loads the matching module. It shares the alias, blacklist and
// dependency machinery with the hotplug daemon.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/HotplugProject/hotplugd-core/pkg/config"
	"github.com/HotplugProject/hotplugd-core/pkg/kmod"
	"github.com/HotplugProject/hotplugd-core/pkg/modules"
)

// Exit codes mirror the errno values the kernel expects from its modprobe
// helper.
const (
	exitPermission = 1  // EPERM
	exitInvalid    = 22 // EINVAL
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Only the kernel (root) may ask for module loads.
	if os.Getuid() != 0 {
		log.Error().Msg("modprobe: permission denied")
		os.Exit(exitPermission)
	}

	args := os.Args[1:]
	for len(args) > 0 && (args[0] == "-q" || args[0] == "--") {
		if args[0] == "-q" {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		}
		args = args[1:]
	}

	if len(args) < 1 {
		log.Error().Msg("modprobe: no module or modalias given")
		os.Exit(exitInvalid)
	}

	log.Warn().Msgf("modprobe %s", args[0])

	fs := afero.NewOsFs()
	base := kmod.DefaultModulePath()
	loader := modules.NewLoader(fs, kmod.NewLoader(fs, base),
		base+"/modules.alias", config.BaseDefaults.Modules.BlacklistPath,
		func() bool { return false })

	if err := loader.Probe(args); err != nil {
		log.Error().Err(err).Msgf("failed to load %s", args[0])
		os.Exit(1)
	}
}
