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

// Package selabel abstracts the security-label database consulted during
// device node creation. The concrete database (an SELinux file-contexts
// handle on labeled systems) lives behind the Handle interface; Store makes
// the process-global handle swappable when the policy changes underneath a
// running manager.
package selabel

import "sync/atomic"

// Handle answers label queries for device paths and applies labels to the
// filesystem.
type Handle interface {
	// Lookup returns the label for a node about to be created at path with
	// the given symlink aliases and mode.
	Lookup(path string, links []string, mode uint32) (string, error)

	// SetFSCreate sets the label applied to subsequently created filesystem
	// objects. An empty label clears the creation context.
	SetFSCreate(label string) error

	// SetFileLabel relabels an existing path.
	SetFileLabel(path, label string) error

	// RestoreconRecursive restores default labels under path.
	RestoreconRecursive(path string) error
}

// Nop is a Handle for systems without a loaded policy. Lookups return the
// empty label and every application succeeds.
type Nop struct{}

func (Nop) Lookup(string, []string, uint32) (string, error) { return "", nil }
func (Nop) SetFSCreate(string) error                        { return nil }
func (Nop) SetFileLabel(string, string) error               { return nil }
func (Nop) RestoreconRecursive(string) error                { return nil }

// Store holds the current Handle. Readers call Current on every node
// creation; Replace swaps the handle atomically when a policy update lands.
type Store struct {
	v atomic.Value
}

// NewStore returns a Store seeded with h.
func NewStore(h Handle) *Store {
	s := &Store{}
	s.v.Store(&h)
	return s
}

// Current returns the active handle.
func (s *Store) Current() Handle {
	return *s.v.Load().(*Handle)
}

// Replace atomically installs h as the active handle.
func (s *Store) Replace(h Handle) {
	s.v.Store(&h)
}
