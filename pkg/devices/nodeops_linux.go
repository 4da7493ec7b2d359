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
	"syscall"

	"golang.org/x/sys/unix"
)

// UnixNodeOps is the production NodeOps, backed by direct syscalls.
type UnixNodeOps struct{}

func (UnixNodeOps) Mknod(path string, mode uint32, dev uint64) error {
	return unix.Mknod(path, mode, int(dev))
}

func (UnixNodeOps) Chown(path string, uid, gid int) error {
	return unix.Chown(path, uid, gid)
}

func (UnixNodeOps) Symlink(target, link string) error {
	return unix.Symlink(target, link)
}

func (UnixNodeOps) Readlink(path string) (string, error) {
	return os.Readlink(path)
}

func (UnixNodeOps) Unlink(path string) error {
	return unix.Unlink(path)
}

func (UnixNodeOps) Setegid(gid int) error {
	return syscall.Setegid(gid)
}
