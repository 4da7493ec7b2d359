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

//go:build linux

package kmod

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DefaultModulePath returns the running kernel's module directory.
func DefaultModulePath() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "/lib/modules"
	}
	release := uts.Release[:]
	if i := bytes.IndexByte(release, 0); i >= 0 {
		release = release[:i]
	}
	return "/lib/modules/" + string(release)
}

// finitModule hands the module file to the kernel. Swapped out in tests.
var finitModule = func(modPath, options string) error {
	f, err := os.Open(modPath) //nolint:gosec // path comes from modules.dep
	if err != nil {
		return fmt.Errorf("failed to open module: %w", err)
	}
	defer func() { _ = f.Close() }()

	err = unix.EBUSY
	for errors.Is(err, unix.EBUSY) {
		err = unix.FinitModule(int(f.Fd()), options, 0)
	}
	if err != nil && !errors.Is(err, unix.EEXIST) && !errors.Is(err, unix.ENODEV) {
		return fmt.Errorf("finit_module %s: %w", modPath, err)
	}
	return nil
}
