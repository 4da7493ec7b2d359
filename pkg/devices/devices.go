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

// Package devices reconciles kernel uevents with userspace state: device
// nodes and stable symlinks under /dev, permission and label fixups under
// /sys, the platform-device registry behind stable block-device naming, and
// the coldboot replay of pre-existing devices.
package devices

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/HotplugProject/hotplugd-core/pkg/modules"
	"github.com/HotplugProject/hotplugd-core/pkg/selabel"
	"github.com/HotplugProject/hotplugd-core/pkg/uevent"
)

// Device name and path limits, unchanged from the fixed buffers this
// pipeline has always used: a device name longer than deviceNameMax, or an
// assembled devpath of devpathMax bytes or more, aborts the event.
const (
	deviceNameMax = 64
	devpathMax    = 96
)

// DevnameSource selects where a configured subsystem takes its device name
// from.
type DevnameSource int

const (
	// DevnameUevent uses the event's DEVNAME value.
	DevnameUevent DevnameSource = iota
	// DevnameDevpath uses the basename of the event's devpath.
	DevnameDevpath
)

// Subsystem is one configured subsystem entry: events from Name get their
// node under DirName, named per Source.
type Subsystem struct {
	Name    string
	DirName string
	Source  DevnameSource
}

// Manager owns the hotplug state of one process: the platform registry,
// permission tables, subsystem configuration and the handles used to touch
// /dev and /sys. It is confined to the event-loop goroutine.
type Manager struct {
	fs         afero.Fs
	nodes      NodeOps
	labels     *selabel.Store
	modules    *modules.Loader
	perms      *PermissionStore
	platform   *PlatformRegistry
	subsystems []Subsystem
}

// NewManager wires a Manager. perms may be pre-populated via LoadRules;
// subsystems come from daemon configuration.
func NewManager(fsys afero.Fs, nodes NodeOps, labels *selabel.Store, mods *modules.Loader,
	perms *PermissionStore, subsystems []Subsystem,
) *Manager {
	return &Manager{
		fs:         fsys,
		nodes:      nodes,
		labels:     labels,
		modules:    mods,
		perms:      perms,
		platform:   &PlatformRegistry{},
		subsystems: subsystems,
	}
}

// HandleEvent routes one decoded uevent through the pipeline: module
// autoload and sysfs fixup side effects first, then the subsystem-specific
// device handling.
func (m *Manager) HandleEvent(ev *uevent.Event) {
	log.Debug().
		Str("action", ev.Action).
		Str("path", ev.Path).
		Str("subsystem", ev.Subsystem).
		Int("major", ev.Major).
		Int("minor", ev.Minor).
		Msg("uevent")

	if ev.Action == uevent.ActionAdd {
		m.modules.HandleModalias(ev.Modalias)
	}

	if ev.Action == uevent.ActionAdd || ev.Action == uevent.ActionChange || ev.Action == uevent.ActionOnline {
		m.fixupSysPerms(ev.Path)
	}

	switch {
	case strings.HasPrefix(ev.Subsystem, "block"):
		m.handleBlockDevice(ev)
	case strings.HasPrefix(ev.Subsystem, "platform"):
		m.handlePlatformDevice(ev)
	default:
		m.handleGenericDevice(ev)
	}
}

// Platform returns the platform registry; the coldboot and service layers
// never need it, but tests and diagnostics do.
func (m *Manager) Platform() *PlatformRegistry {
	return m.platform
}

func (m *Manager) handlePlatformDevice(ev *uevent.Event) {
	switch ev.Action {
	case uevent.ActionAdd:
		m.platform.Add(ev.Path)
	case uevent.ActionRemove:
		m.platform.Remove(ev.Path)
	}
}

// parseDeviceName extracts the node name from the event path. Events
// without a major/minor pair carry no node; over-long names abort the event
// rather than risk a truncated path.
func parseDeviceName(ev *uevent.Event, maxLen int) string {
	if ev.Major < 0 || ev.Minor < 0 {
		return ""
	}

	idx := strings.LastIndexByte(ev.Path, '/')
	if idx < 0 {
		return ""
	}
	name := ev.Path[idx+1:]

	if len(name) > maxLen {
		log.Error().Msgf("DEVPATH=%s exceeds %d-character limit on filename; ignoring event", name, maxLen)
		return ""
	}
	return name
}

func (m *Manager) handleBlockDevice(ev *uevent.Event) {
	name := parseDeviceName(ev, deviceNameMax)
	if name == "" {
		return
	}

	devpath := "/dev/block/" + name
	m.makeDir("/dev/block")

	var links []string
	if strings.HasPrefix(ev.Path, "/devices/") {
		links = m.blockDeviceSymlinks(ev)
	}

	m.handleDevice(ev.Action, devpath, true, ev.Major, ev.Minor, links)
}

// assembleDevpath joins dirname and devname, aborting the event when the
// result would not fit the historical path limit.
func assembleDevpath(dirname, devname string) (string, bool) {
	devpath := dirname + "/" + devname
	if len(devpath) >= devpathMax {
		log.Error().Msgf("%s exceeds %d-character limit on path; ignoring event", devpath, devpathMax)
		return "", false
	}
	return devpath, true
}

func (m *Manager) handleGenericDevice(ev *uevent.Event) {
	name := parseDeviceName(ev, deviceNameMax)
	if name == "" {
		return
	}

	var devpath string
	sub := m.findSubsystem(ev.Subsystem)
	switch {
	case sub != nil:
		devname := name
		if sub.Source == DevnameUevent {
			devname = ev.DeviceName
		}
		if devname == "" {
			log.Error().Msgf("%s subsystem event carries no usable device name; ignoring event", ev.Subsystem)
			return
		}
		var ok bool
		if devpath, ok = assembleDevpath(sub.DirName, devname); !ok {
			return
		}
		m.makeParentDirs(devpath)

	case strings.HasPrefix(ev.Subsystem, "usb"):
		if ev.Subsystem != "usb" && ev.Subsystem != "usbmisc" {
			return
		}
		if ev.DeviceName != "" {
			var ok bool
			if devpath, ok = assembleDevpath("/dev", ev.DeviceName); !ok {
				return
			}
			m.makeParentDirs(devpath)
		} else {
			// Mirror the devfs layout: minors are grouped 128 to a bus,
			// numbered from 001.
			busID := ev.Minor/128 + 1
			deviceID := ev.Minor%128 + 1
			m.makeDir("/dev/bus")
			m.makeDir("/dev/bus/usb")
			busDir := fmt.Sprintf("/dev/bus/usb/%03d", busID)
			m.makeDir(busDir)
			devpath = fmt.Sprintf("%s/%03d", busDir, deviceID)
		}

	default:
		base := "/dev/"
		switch {
		case strings.HasPrefix(ev.Subsystem, "graphics"):
			base = "/dev/graphics/"
		case strings.HasPrefix(ev.Subsystem, "drm"):
			base = "/dev/dri/"
		case strings.HasPrefix(ev.Subsystem, "oncrpc"):
			base = "/dev/oncrpc/"
		case strings.HasPrefix(ev.Subsystem, "adsp"):
			base = "/dev/adsp/"
		case strings.HasPrefix(ev.Subsystem, "msm_camera"):
			base = "/dev/msm_camera/"
		case strings.HasPrefix(ev.Subsystem, "input"):
			base = "/dev/input/"
		case strings.HasPrefix(ev.Subsystem, "mtd"):
			base = "/dev/mtd/"
		case strings.HasPrefix(ev.Subsystem, "sound"):
			base = "/dev/snd/"
		case strings.HasPrefix(ev.Subsystem, "misc") && strings.HasPrefix(name, "log_"):
			log.Info().Msg("kernel logger is deprecated")
			base = "/dev/log/"
			name = name[len("log_"):]
		}
		if base != "/dev/" {
			m.makeDir(strings.TrimSuffix(base, "/"))
		}
		devpath = base + name
	}

	links := m.characterDeviceSymlinks(ev)
	m.handleDevice(ev.Action, devpath, false, ev.Major, ev.Minor, links)
}

func (m *Manager) findSubsystem(name string) *Subsystem {
	for i := range m.subsystems {
		if m.subsystems[i].Name == name {
			return &m.subsystems[i]
		}
	}
	return nil
}

func (m *Manager) makeDir(path string) {
	if err := m.fs.Mkdir(path, 0o755); err != nil && !isExist(err) {
		log.Warn().Err(err).Msgf("failed to create %s", path)
	}
}

func (m *Manager) makeParentDirs(devpath string) {
	idx := strings.LastIndexByte(devpath, '/')
	if idx <= 0 {
		return
	}
	if err := m.fs.MkdirAll(devpath[:idx], 0o755); err != nil {
		log.Warn().Err(err).Msgf("failed to create directories for %s", devpath)
	}
}
