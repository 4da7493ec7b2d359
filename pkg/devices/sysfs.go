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
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// sysfsPathMax bounds the assembled /sys attribute path, matching the
// fixed buffer the fixup has always used.
const sysfsPathMax = 512

// fixupSysPerms applies the sysfs permission rules to an event path and
// restores security labels underneath it. upath omits the /sys prefix;
// rule patterns carry it.
func (m *Manager) fixupSysPerms(upath string) {
	for i := range m.perms.SysRules() {
		rule := &m.perms.SysRules()[i]
		pattern := strings.TrimPrefix(rule.Pattern, "/sys")
		if !rule.matchesPath(pattern, upath) {
			continue
		}

		if len(upath)+len(rule.Attribute)+6 > sysfsPathMax {
			break
		}

		attrPath := "/sys" + upath + "/" + rule.Attribute
		log.Info().Msgf("fixup %s %d %d 0%o", attrPath, rule.UID, rule.GID, rule.Mode)
		if err := m.nodes.Chown(attrPath, rule.UID, rule.GID); err != nil {
			log.Warn().Err(err).Msgf("failed to chown %s", attrPath)
		}
		if err := m.fs.Chmod(attrPath, os.FileMode(rule.Mode)); err != nil {
			log.Warn().Err(err).Msgf("failed to chmod %s", attrPath)
		}
	}

	sysPath := "/sys" + upath
	if ok, err := afero.Exists(m.fs, sysPath); err == nil && ok {
		log.Info().Msgf("restorecon_recursive: %s", sysPath)
		if err := m.labels.Current().RestoreconRecursive(sysPath); err != nil {
			log.Warn().Err(err).Msgf("failed to restore labels under %s", sysPath)
		}
	}
}
