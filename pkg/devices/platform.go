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
	"strings"

	"github.com/rs/zerolog/log"
)

// PlatformNode is one registered platform device. Name is the devpath with
// the /devices/ (and optional platform/) prefix stripped; it becomes the
// stable directory component under /dev/block/platform/.
type PlatformNode struct {
	Path string
	Name string
}

// PlatformRegistry tracks the platform devices announced by the kernel, in
// arrival order. Block and character devices hanging off a platform device
// use the registry to derive their stable symlink names.
type PlatformRegistry struct {
	nodes []PlatformNode
}

// Add registers path. Platform add events are not replayed for the same
// path, so no dedup happens here.
func (r *PlatformRegistry) Add(path string) {
	name := path
	if rest, ok := strings.CutPrefix(path, "/devices/"); ok {
		name = strings.TrimPrefix(rest, "platform/")
	}

	log.Info().Msgf("adding platform device %s (%s)", name, path)
	r.nodes = append(r.nodes, PlatformNode{Path: path, Name: name})
}

// Remove drops the entry whose path matches exactly; no-op when absent.
func (r *PlatformRegistry) Remove(path string) {
	for i := len(r.nodes) - 1; i >= 0; i-- {
		if r.nodes[i].Path == path {
			log.Info().Msgf("removing platform device %s", r.nodes[i].Name)
			r.nodes = append(r.nodes[:i], r.nodes[i+1:]...)
			return
		}
	}
}

// Find returns the most recently added entry whose path is a proper,
// '/'-terminated prefix of path. Nested platform devices register after
// their parents, so the most recent match is also the longest.
func (r *PlatformRegistry) Find(path string) (PlatformNode, bool) {
	for i := len(r.nodes) - 1; i >= 0; i-- {
		n := r.nodes[i]
		if len(n.Path) < len(path) && path[len(n.Path)] == '/' && strings.HasPrefix(path, n.Path) {
			return n, true
		}
	}
	return PlatformNode{}, false
}
