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

// Package helpers provides filesystem fixtures shared by the package tests:
// in-memory /sys and /dev trees and a recording stand-in for the node-level
// syscalls.
package helpers

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// FSHelper wraps an afero filesystem used to model /sys, /dev and the
// firmware directories in tests.
type FSHelper struct {
	Fs afero.Fs
}

// NewMemoryFS returns an in-memory filesystem helper.
func NewMemoryFS() *FSHelper {
	return &FSHelper{Fs: afero.NewMemMapFs()}
}

// CreateTree builds a directory structure: a string value is a file with
// that content, a nested map is a directory, nil is an empty directory.
func (h *FSHelper) CreateTree(base string, tree map[string]any) error {
	for name, content := range tree {
		full := filepath.Join(base, name)
		switch v := content.(type) {
		case string:
			if err := h.Fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", full, err)
			}
			if err := afero.WriteFile(h.Fs, full, []byte(v), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", full, err)
			}
		case map[string]any:
			if err := h.Fs.MkdirAll(full, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", full, err)
			}
			if err := h.CreateTree(full, v); err != nil {
				return err
			}
		case nil:
			if err := h.Fs.MkdirAll(full, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", full, err)
			}
		default:
			return fmt.Errorf("unsupported tree entry %s: %T", full, content)
		}
	}
	return nil
}

// SysDeviceTree returns a small sysfs-shaped tree with uevent files, used
// by the coldboot tests.
func SysDeviceTree() map[string]any {
	return map[string]any{
		"class": map[string]any{
			"tty": map[string]any{
				"uevent": "",
			},
		},
		"block": map[string]any{
			"mmcblk0": map[string]any{
				"uevent": "",
				"mmcblk0p1": map[string]any{
					"uevent": "",
				},
			},
		},
		"devices": map[string]any{
			"platform": map[string]any{
				"uevent": "",
				".hidden": map[string]any{
					"uevent": "",
				},
			},
		},
	}
}

// Exists reports whether path exists on the helper filesystem.
func (h *FSHelper) Exists(path string) bool {
	ok, err := afero.Exists(h.Fs, path)
	return err == nil && ok
}

// ReadFile returns the content of path.
func (h *FSHelper) ReadFile(path string) (string, error) {
	data, err := afero.ReadFile(h.Fs, path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// MknodCall records one FakeNodeOps.Mknod invocation.
type MknodCall struct {
	Path string
	Mode uint32
	Dev  uint64
}

// ChownCall records one FakeNodeOps.Chown invocation.
type ChownCall struct {
	Path string
	UID  int
	GID  int
}

// FakeNodeOps records node-level operations and mirrors symlinks into an
// in-memory table so removal paths can be exercised.
type FakeNodeOps struct {
	Mknods   []MknodCall
	Chowns   []ChownCall
	Egids    []int
	Unlinks  []string
	Symlinks map[string]string

	// MknodErr, when set, is returned by every Mknod call.
	MknodErr error
}

// NewFakeNodeOps returns an empty recorder.
func NewFakeNodeOps() *FakeNodeOps {
	return &FakeNodeOps{Symlinks: make(map[string]string)}
}

func (f *FakeNodeOps) Mknod(path string, mode uint32, dev uint64) error {
	if f.MknodErr != nil {
		return f.MknodErr
	}
	f.Mknods = append(f.Mknods, MknodCall{Path: path, Mode: mode, Dev: dev})
	return nil
}

func (f *FakeNodeOps) Chown(path string, uid, gid int) error {
	f.Chowns = append(f.Chowns, ChownCall{Path: path, UID: uid, GID: gid})
	return nil
}

func (f *FakeNodeOps) Symlink(target, link string) error {
	if _, ok := f.Symlinks[link]; ok {
		return fs.ErrExist
	}
	f.Symlinks[link] = target
	return nil
}

func (f *FakeNodeOps) Readlink(path string) (string, error) {
	target, ok := f.Symlinks[path]
	if !ok {
		return "", fs.ErrNotExist
	}
	return target, nil
}

// Unlink removes a recorded symlink, or records the removal of a node
// path.
func (f *FakeNodeOps) Unlink(path string) error {
	if _, ok := f.Symlinks[path]; ok {
		delete(f.Symlinks, path)
		return nil
	}
	f.Unlinks = append(f.Unlinks, path)
	return nil
}

func (f *FakeNodeOps) Setegid(gid int) error {
	f.Egids = append(f.Egids, gid)
	return nil
}

// LinkNames returns the recorded symlink paths, sorted.
func (f *FakeNodeOps) LinkNames() []string {
	names := make([]string, 0, len(f.Symlinks))
	for name := range f.Symlinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
