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

// Package config holds the daemon configuration: file locations, firmware
// search paths and subsystem entries, stored as TOML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	// SchemaVersion tracks the config file layout.
	SchemaVersion = 1

	// CfgFile is the config file name inside the config directory.
	CfgFile = "hotplugd.toml"
)

// Values is the serialized configuration.
type Values struct {
	Rules        Rules       `toml:"rules,omitempty"`
	Firmware     Firmware    `toml:"firmware,omitempty"`
	Modules      Modules     `toml:"modules,omitempty"`
	Sentinels    Sentinels   `toml:"sentinels,omitempty"`
	Subsystems   []Subsystem `toml:"subsystems,omitempty"`
	ConfigSchema int         `toml:"config_schema"`
	DebugLogging bool        `toml:"debug_logging"`
}

// Rules locates the permission-rules file.
type Rules struct {
	Path string `toml:"path"`
}

// Firmware configures the firmware server. An empty SearchDirs keeps the
// architecture default.
type Firmware struct {
	SearchDirs []string `toml:"search_dirs,omitempty,multiline"`
}

// Modules configures module autoloading. An empty BasePath resolves to
// /lib/modules/<release> at startup.
type Modules struct {
	BasePath      string `toml:"base_path,omitempty"`
	BlacklistPath string `toml:"blacklist_path,omitempty"`
}

// Sentinels are the well-known files marking boot progress.
type Sentinels struct {
	Booting      string `toml:"booting"`
	ColdbootDone string `toml:"coldboot_done"`
}

// Subsystem is a configured subsystem entry. Devname selects the node name
// source: "uevent_devname" or "uevent_devpath".
type Subsystem struct {
	Name    string `toml:"name"`
	DirName string `toml:"dirname"`
	Devname string `toml:"devname"`
}

// Devname source values for Subsystem entries.
const (
	DevnameUevent  = "uevent_devname"
	DevnameDevpath = "uevent_devpath"
)

// BaseDefaults reproduce the constants this device manager has always
// shipped with.
var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Rules: Rules{
		Path: "/etc/hotplugd.rc",
	},
	Modules: Modules{
		BlacklistPath: "/system/etc/modules.blacklist",
	},
	Sentinels: Sentinels{
		Booting:      "/dev/.booting",
		ColdbootDone: "/dev/.coldboot_done",
	},
}

// Instance is a live configuration handle.
type Instance struct {
	fs      afero.Fs
	cfgPath string
	vals    Values
	mu      sync.RWMutex
}

// NewConfig loads the config file under configDir, writing the defaults to
// disk on first start.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(fsys afero.Fs, configDir string, defaults Values) (*Instance, error) {
	cfg := Instance{
		fs:      fsys,
		cfgPath: filepath.Join(configDir, CfgFile),
		vals:    defaults,
	}

	if _, err := cfg.fs.Stat(cfg.cfgPath); errors.Is(err, fs.ErrNotExist) {
		log.Info().Msg("saving new default config to disk")

		if err := cfg.fs.MkdirAll(configDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load re-reads the config file.
func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := afero.ReadFile(c.fs, c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	var vals Values
	if err := toml.Unmarshal(data, &vals); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	c.vals = vals
	return nil
}

// Save writes the current values to disk.
func (c *Instance) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := toml.Marshal(c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := afero.WriteFile(c.fs, c.cfgPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Values returns a copy of the current configuration.
func (c *Instance) Values() Values {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vals := c.vals
	vals.Subsystems = append([]Subsystem(nil), c.vals.Subsystems...)
	vals.Firmware.SearchDirs = append([]string(nil), c.vals.Firmware.SearchDirs...)
	return vals
}

// DebugLogging reports whether debug logging is enabled.
func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

// SetDebugLogging toggles debug logging.
func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}
