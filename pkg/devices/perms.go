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

	"github.com/bmatcuk/doublestar/v4"
)

// MatchKind selects how a rule pattern is compared against a path.
type MatchKind int

const (
	// MatchExact requires byte equality.
	MatchExact MatchKind = iota
	// MatchPrefix matches any path starting with the pattern, with no
	// delimiter requirement.
	MatchPrefix
	// MatchGlob matches with filename-glob semantics; wildcards do not
	// cross path separators.
	MatchGlob
)

// DefaultDevMode is applied to device nodes no rule matches.
const DefaultDevMode = 0o600

// PermissionRule is one parsed permission line. A rule with an Attribute
// applies to a sysfs attribute file; its pattern carries the /sys prefix.
// A rule without one applies to a /dev node path.
type PermissionRule struct {
	Pattern   string
	Attribute string
	Mode      uint32
	UID       int
	GID       int
	Match     MatchKind
}

func (r *PermissionRule) matchesPath(pattern, path string) bool {
	switch r.Match {
	case MatchPrefix:
		return strings.HasPrefix(path, pattern)
	case MatchGlob:
		ok, err := doublestar.Match(pattern, path)
		return err == nil && ok
	default:
		return path == pattern
	}
}

func (r *PermissionRule) matchesAny(path string, links []string) bool {
	if r.matchesPath(r.Pattern, path) {
		return true
	}
	for _, link := range links {
		if r.matchesPath(r.Pattern, link) {
			return true
		}
	}
	return false
}

// PermissionStore holds the parsed permission rules, split into the /dev
// node table and the /sys attribute table. Rules are parsed once at startup
// and live for the process.
type PermissionStore struct {
	devPerms []PermissionRule
	sysPerms []PermissionRule
}

// Add appends a rule. A non-empty attribute routes the rule to the sysfs
// table, otherwise to the device table.
func (s *PermissionStore) Add(name, attribute string, mode uint32, uid, gid int, match MatchKind) {
	rule := PermissionRule{
		Pattern:   name,
		Attribute: attribute,
		Mode:      mode,
		UID:       uid,
		GID:       gid,
		Match:     match,
	}
	if attribute != "" {
		s.sysPerms = append(s.sysPerms, rule)
	} else {
		s.devPerms = append(s.devPerms, rule)
	}
}

// ResolveDev returns the mode, uid and gid for a device node at path with
// the given symlink aliases. The table is scanned in reverse so that rules
// from a hardware-specific file appended after the base rules win.
func (s *PermissionStore) ResolveDev(path string, links []string) (mode uint32, uid, gid int) {
	for i := len(s.devPerms) - 1; i >= 0; i-- {
		rule := &s.devPerms[i]
		if rule.matchesAny(path, links) {
			return rule.Mode, rule.UID, rule.GID
		}
	}
	return DefaultDevMode, 0, 0
}

// SysRules returns the sysfs fixup rules in insertion order.
func (s *PermissionStore) SysRules() []PermissionRule {
	return s.sysPerms
}
