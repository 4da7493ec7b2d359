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
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// coldbootRoots are the /sys subtrees whose devices existed before the
// manager started and need their add events replayed.
var coldbootRoots = []string{"/sys/class", "/sys/block", "/sys/devices"}

// Coldboot walks the sysfs trees writing "add" to every uevent file, making
// the kernel regenerate the device-add events that predate the manager.
// drain is invoked after every poke so the netlink receive buffer cannot
// overflow under the burst; that call is part of the contract, not a tuning
// knob.
func (m *Manager) Coldboot(drain func()) {
	for _, root := range coldbootRoots {
		m.coldbootDir(root, drain)
	}
}

func (m *Manager) coldbootDir(dir string, drain func()) {
	if f, err := m.fs.OpenFile(filepath.Join(dir, "uevent"), os.O_WRONLY, 0); err == nil {
		_, _ = f.Write([]byte("add\n"))
		_ = f.Close()
		drain()
	}

	entries, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		m.coldbootDir(filepath.Join(dir, entry.Name()), drain)
	}
}
