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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDevDefault(t *testing.T) {
	t.Parallel()

	s := &PermissionStore{}
	mode, uid, gid := s.ResolveDev("/dev/null", nil)

	assert.Equal(t, uint32(DefaultDevMode), mode)
	assert.Equal(t, 0, uid)
	assert.Equal(t, 0, gid)
}

func TestResolveDevLatestRuleWins(t *testing.T) {
	t.Parallel()

	s := &PermissionStore{}
	s.Add("/dev/ttyHS", "", 0o600, 0, 0, MatchPrefix)
	// Hardware-specific override appended later must beat the base rule.
	s.Add("/dev/ttyHS0", "", 0o660, 1001, 1001, MatchExact)

	mode, uid, gid := s.ResolveDev("/dev/ttyHS0", nil)
	assert.Equal(t, uint32(0o660), mode)
	assert.Equal(t, 1001, uid)
	assert.Equal(t, 1001, gid)

	mode, _, _ = s.ResolveDev("/dev/ttyHS1", nil)
	assert.Equal(t, uint32(0o600), mode)
}

func TestResolveDevMatchKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		kind    MatchKind
		path    string
		match   bool
	}{
		{"exact hit", "/dev/fb0", MatchExact, "/dev/fb0", true},
		{"exact miss", "/dev/fb0", MatchExact, "/dev/fb1", false},
		{"prefix hit", "/dev/tty", MatchPrefix, "/dev/ttyUSB0", true},
		{"prefix no delimiter needed", "/dev/mtd/mtd", MatchPrefix, "/dev/mtd/mtd3ro", true},
		{"prefix miss", "/dev/tty", MatchPrefix, "/dev/fb0", false},
		{"glob hit", "/dev/snd/pcm*", MatchGlob, "/dev/snd/pcmC0D0p", true},
		{"glob does not cross separator", "/dev/*", MatchGlob, "/dev/snd/timer", false},
		{"glob class", "/dev/tty[0-9]", MatchGlob, "/dev/tty5", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := &PermissionStore{}
			s.Add(tt.pattern, "", 0o640, 7, 8, tt.kind)

			mode, _, _ := s.ResolveDev(tt.path, nil)
			if tt.match {
				assert.Equal(t, uint32(0o640), mode)
			} else {
				assert.Equal(t, uint32(DefaultDevMode), mode)
			}
		})
	}
}

func TestResolveDevMatchesSymlinkAlias(t *testing.T) {
	t.Parallel()

	s := &PermissionStore{}
	s.Add("/dev/block/platform/soc/by-name/*", "", 0o660, 0, 1005, MatchGlob)

	links := []string{"/dev/block/platform/soc/by-name/system"}
	mode, _, gid := s.ResolveDev("/dev/block/mmcblk0p5", links)

	assert.Equal(t, uint32(0o660), mode)
	assert.Equal(t, 1005, gid)
}

func TestAddRoutesByAttribute(t *testing.T) {
	t.Parallel()

	s := &PermissionStore{}
	s.Add("/sys/devices/virtual/input/input*", "enable", 0o660, 0, 0, MatchGlob)
	s.Add("/dev/input/event*", "", 0o660, 0, 1004, MatchGlob)

	assert.Len(t, s.SysRules(), 1)
	assert.Len(t, s.devPerms, 1)
	assert.Equal(t, "enable", s.SysRules()[0].Attribute)
}
