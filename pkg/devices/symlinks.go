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

package devices

import (
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/HotplugProject/hotplugd-core/pkg/uevent"
)

// findPCIDevicePrefix extracts "pci<domain:bus>/<BDF>" from a devpath under
// /devices/pci..., the first two '/'-terminated segments after /devices/.
func findPCIDevicePrefix(devpath string) (string, bool) {
	if !strings.HasPrefix(devpath, "/devices/pci") {
		return "", false
	}
	rest := devpath[len("/devices/"):]

	first := strings.IndexByte(rest, '/')
	if first < 0 {
		return "", false
	}
	second := strings.IndexByte(rest[first+1:], '/')
	if second < 0 {
		return "", false
	}
	return rest[:first+1+second], true
}

// sanitizePartitionName replaces every character outside [A-Za-z0-9_-] with '_'
// (one '_' per rune, so a multi-byte character becomes a single '_')
// so partition labels cannot inject path components into /dev.
func sanitizePartitionName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}

// blockDeviceSymlinks derives the stable /dev/block/... aliases for a block
// device event: by-name and by-num partition links plus the devpath
// basename, all under the owning platform or PCI controller directory.
func (m *Manager) blockDeviceSymlinks(ev *uevent.Event) []string {
	var device, kind string
	if pdev, ok := m.platform.Find(ev.Path); ok {
		device, kind = pdev.Name, "platform"
	} else if pci, ok := findPCIDevicePrefix(ev.Path); ok {
		device, kind = pci, "pci"
	} else {
		return nil
	}

	log.Info().Msgf("found %s device %s", kind, device)
	linkPath := "/dev/block/" + kind + "/" + device

	var links []string
	if ev.PartitionName != "" {
		clean := sanitizePartitionName(ev.PartitionName)
		if clean != ev.PartitionName {
			log.Warn().Msgf("linking partition %q as %q", ev.PartitionName, clean)
		}
		links = append(links, linkPath+"/by-name/"+clean)
	}
	if ev.PartitionNum >= 0 {
		links = append(links, fmt.Sprintf("%s/by-num/p%d", linkPath, ev.PartitionNum))
	}
	return append(links, linkPath+"/"+path.Base(ev.Path))
}

// characterDeviceSymlinks gives USB character devices under a platform
// controller a stable /dev/usb/<subsystem><interface> alias. The devpath
// segment after the platform prefix must be the USB root hub; the root hub
// and device segments are skipped and the interface segment names the link.
func (m *Manager) characterDeviceSymlinks(ev *uevent.Event) []string {
	pdev, ok := m.platform.Find(ev.Path)
	if !ok {
		return nil
	}

	rest := ev.Path[len(pdev.Path):]
	if !strings.HasPrefix(rest, "/usb") {
		return nil
	}

	// rest = /usb<N>/<device>/<interface>/...
	segs := strings.Split(rest, "/")
	if len(segs) < 5 || segs[3] == "" {
		return nil
	}

	if err := m.fs.Mkdir("/dev/usb", 0o755); err != nil && !isExist(err) {
		log.Error().Err(err).Msg("failed to create /dev/usb")
	}
	return []string{"/dev/usb/" + ev.Subsystem + segs[3]}
}
