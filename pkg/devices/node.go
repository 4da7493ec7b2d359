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
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/HotplugProject/hotplugd-core/pkg/uevent"
)

func isExist(err error) bool {
	return errors.Is(err, fs.ErrExist)
}

// Device special-file type bits, kept local so the package stays testable
// off-target.
const (
	sIFCHR = 0x2000
	sIFBLK = 0x6000
)

// makedev packs major/minor into the kernel's 64-bit device number layout.
func makedev(major, minor int) uint64 {
	dev := (uint64(major) & 0x00000fff) << 8
	dev |= (uint64(major) & 0xfffff000) << 32
	dev |= uint64(minor) & 0x000000ff
	dev |= (uint64(minor) & 0xffffff00) << 12
	return dev
}

// handleDevice applies one add or remove action to a device node and its
// symlink aliases. Other actions fall through untouched.
func (m *Manager) handleDevice(action, devpath string, block bool, major, minor int, links []string) {
	if action == uevent.ActionAdd {
		m.makeDevice(devpath, block, major, minor, links)
		for _, link := range links {
			m.makeLink(devpath, link)
		}
	}

	if action == uevent.ActionRemove {
		for _, link := range links {
			m.removeLink(devpath, link)
		}
		_ = m.nodes.Unlink(devpath)
	}
}

// makeDevice creates the node at devpath with the resolved permission,
// ownership and security label. The effective gid is switched around the
// mknod so the node is never visible with the default group; the uid window
// remains and is closed with chown afterwards.
func (m *Manager) makeDevice(devpath string, block bool, major, minor int, links []string) {
	mode, uid, gid := m.perms.ResolveDev(devpath, links)
	if block {
		mode |= sIFBLK
	} else {
		mode |= sIFCHR
	}

	labels := m.labels.Current()
	label, err := labels.Lookup(devpath, links, mode)
	if err != nil {
		log.Error().Err(err).Msgf("device %s not created; cannot find security label", devpath)
		return
	}
	if err := labels.SetFSCreate(label); err != nil {
		log.Error().Err(err).Msgf("device %s not created; cannot set creation context", devpath)
		return
	}

	if err := m.nodes.Setegid(gid); err != nil {
		log.Error().Err(err).Msgf("failed to set egid %d for %s", gid, devpath)
	}

	if err := m.nodes.Mknod(devpath, mode, makedev(major, minor)); err != nil {
		if isExist(err) {
			// Nodes created during coldboot may carry a provisional
			// context; relabel in place.
			if lerr := labels.SetFileLabel(devpath, label); lerr != nil {
				log.Error().Err(lerr).Msgf("cannot set %q security label on %s", label, devpath)
			}
		} else {
			log.Error().Err(err).Msgf("failed to create device node %s", devpath)
		}
	}
	if err := m.nodes.Chown(devpath, uid, -1); err != nil {
		log.Error().Err(err).Msgf("failed to chown %s to %d", devpath, uid)
	}

	if err := m.nodes.Setegid(0); err != nil {
		log.Error().Err(err).Msg("failed to restore egid")
	}
	if err := labels.SetFSCreate(""); err != nil {
		log.Error().Err(err).Msg("failed to clear creation context")
	}
}

// makeLink points a stable alias at devpath, creating parent directories on
// demand.
func (m *Manager) makeLink(devpath, link string) {
	if err := m.fs.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		log.Error().Err(err).Msgf("failed to create directory for %s", link)
		return
	}
	if err := m.nodes.Symlink(devpath, link); err != nil && !isExist(err) {
		log.Error().Err(err).Msgf("failed to symlink %s to %s", link, devpath)
	}
}

// removeLink unlinks the alias only if it still points at devpath, so a
// link re-claimed by a newer device survives the old device's removal.
func (m *Manager) removeLink(devpath, link string) {
	target, err := m.nodes.Readlink(link)
	if err == nil && target == devpath {
		_ = m.nodes.Unlink(link)
	}
}
