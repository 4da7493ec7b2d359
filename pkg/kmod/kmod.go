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

// Package kmod inserts kernel modules with their dependencies. Module
// metadata comes from the modules.dep index under the kernel's module
// directory; insertion goes through finit_module on the module file.
package kmod

import (
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Inserter loads a named module and everything it depends on. Options apply
// to the named module only.
type Inserter interface {
	InsertModuleWithDeps(name, options string) error
}

// Loader resolves modules through a modules.dep index. The index is read
// once on first use and retained.
type Loader struct {
	fs      afero.Fs
	baseDir string

	deps   map[string]moduleEntry
	loaded map[string]struct{}
}

type moduleEntry struct {
	path string
	deps []string
}

// NewLoader returns a Loader rooted at baseDir, normally
// /lib/modules/<release>.
func NewLoader(fsys afero.Fs, baseDir string) *Loader {
	return &Loader{
		fs:      fsys,
		baseDir: baseDir,
		loaded:  make(map[string]struct{}),
	}
}

// InsertModuleWithDeps loads name's dependency chain in order, then name
// itself with the given options. Already-present modules are not an error.
func (l *Loader) InsertModuleWithDeps(name, options string) error {
	if l.deps == nil {
		if err := l.readDepIndex(); err != nil {
			return err
		}
	}

	entry, ok := l.deps[cleanName(name)]
	if !ok {
		return fmt.Errorf("module %s not found under %s", name, l.baseDir)
	}

	for _, dep := range entry.deps {
		if err := l.insert(dep, ""); err != nil {
			// A missing dependency may be built into the running kernel;
			// the final insert decides whether that was fatal.
			log.Warn().Err(err).Str("module", name).Msg("dependency insert failed")
		}
	}

	return l.insert(entry.path, options)
}

func (l *Loader) insert(relPath, options string) error {
	if _, done := l.loaded[relPath]; done {
		return nil
	}
	if err := finitModule(path.Join(l.baseDir, relPath), options); err != nil {
		return err
	}
	l.loaded[relPath] = struct{}{}
	return nil
}

// readDepIndex parses modules.dep: "<path>.ko: <dep>.ko <dep>.ko". Entries
// are keyed by module name with '-' folded to '_'.
func (l *Loader) readDepIndex() error {
	data, err := afero.ReadFile(l.fs, path.Join(l.baseDir, "modules.dep"))
	if err != nil {
		return fmt.Errorf("failed to read modules.dep: %w", err)
	}

	l.deps = make(map[string]moduleEntry)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		modPath, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		entry := moduleEntry{path: modPath}
		// modules.dep lists dependencies deepest-last; insertion wants
		// deepest-first.
		fields := strings.Fields(rest)
		for i := len(fields) - 1; i >= 0; i-- {
			entry.deps = append(entry.deps, fields[i])
		}
		l.deps[moduleNameFromPath(modPath)] = entry
	}
	return nil
}

func moduleNameFromPath(p string) string {
	base := path.Base(p)
	base = strings.TrimSuffix(base, ".ko")
	return cleanName(base)
}

func cleanName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
