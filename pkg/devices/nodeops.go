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

// NodeOps covers the node-level operations afero cannot express: special
// file creation, ownership, symlinks and the effective-gid switch around
// node creation. Production uses the unix implementation; tests record
// calls.
type NodeOps interface {
	// Mknod creates a device special file. mode carries both the S_IFBLK/
	// S_IFCHR type bit and the permission bits.
	Mknod(path string, mode uint32, dev uint64) error

	// Chown changes ownership; -1 leaves the corresponding id untouched.
	Chown(path string, uid, gid int) error

	Symlink(target, link string) error
	Readlink(path string) (string, error)

	// Unlink removes a node or symlink without following it.
	Unlink(path string) error

	// Setegid switches the effective group id of the process.
	Setegid(gid int) error
}
