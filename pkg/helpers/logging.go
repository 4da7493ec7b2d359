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

// Package helpers carries small shared utilities for the daemon binaries.
package helpers

import (
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFile is the rotated daemon log inside the log directory.
const LogFile = "hotplugd.log"

// SetupLogging routes the global logger to a rotated file under logDir,
// plus any extra writers (a console writer in foreground mode). Debug
// enables debug-level event tracing, which is noisy during coldboot.
func SetupLogging(logDir string, debug bool, writers ...io.Writer) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logWriters := []io.Writer{&lumberjack.Logger{
		Filename:   filepath.Join(logDir, LogFile),
		MaxSize:    1,
		MaxBackups: 2,
	}}
	logWriters = append(logWriters, writers...)

	log.Logger = log.Output(io.MultiWriter(logWriters...)).
		With().Timestamp().Logger()
}
