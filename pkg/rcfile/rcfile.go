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

// Package rcfile tokenizes the rc-style configuration files shared by the
// device manager: permission rules, modules.alias and modules.blacklist. One
// rule per line, whitespace-separated fields, '#' starts a comment.
package rcfile

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// LineFunc receives the fields of one non-empty line. Returning an error
// stops the parse.
type LineFunc func(args []string) error

// ParseFile tokenizes path line by line. Missing files are the caller's
// concern; open errors are returned unwrapped inside the context error so
// callers can errors.Is against fs.ErrNotExist.
func ParseFile(fsys afero.Fs, path string, fn LineFunc) error {
	f, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		args := Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if err := fn(args); err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// Fields splits one line into tokens, dropping everything from the first
// '#' on. Quoting is not recognized.
func Fields(line string) []string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.Fields(line)
}
