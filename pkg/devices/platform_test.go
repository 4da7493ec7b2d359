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
	"github.com/stretchr/testify/require"
)

func TestPlatformRegistryNameStripping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"/devices/platform/soc/f9824900.sdhci", "soc/f9824900.sdhci"},
		{"/devices/msm_sdcc.1", "msm_sdcc.1"},
		{"/other/root", "/other/root"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			r := &PlatformRegistry{}
			r.Add(tt.path)
			require.Len(t, r.nodes, 1)
			assert.Equal(t, tt.want, r.nodes[0].Name)
		})
	}
}

func TestPlatformRegistryFind(t *testing.T) {
	t.Parallel()

	r := &PlatformRegistry{}
	r.Add("/devices/platform/soc")
	r.Add("/devices/platform/soc/f9824900.sdhci")

	// Most recently added matching entry wins, giving the longest prefix
	// for nested platform devices.
	pdev, ok := r.Find("/devices/platform/soc/f9824900.sdhci/mmc_host/mmc0")
	require.True(t, ok)
	assert.Equal(t, "soc/f9824900.sdhci", pdev.Name)

	pdev, ok = r.Find("/devices/platform/soc/other")
	require.True(t, ok)
	assert.Equal(t, "soc", pdev.Name)
}

func TestPlatformRegistryFindRequiresProperPrefix(t *testing.T) {
	t.Parallel()

	r := &PlatformRegistry{}
	r.Add("/devices/platform/soc")

	// Exact match is not a proper prefix.
	_, ok := r.Find("/devices/platform/soc")
	assert.False(t, ok)

	// Prefix must end at a path separator.
	_, ok = r.Find("/devices/platform/soccer/dev0")
	assert.False(t, ok)

	_, ok = r.Find("/devices/platform/soc/dev0")
	assert.True(t, ok)
}

func TestPlatformRegistryRemove(t *testing.T) {
	t.Parallel()

	r := &PlatformRegistry{}
	r.Add("/devices/platform/a")
	r.Add("/devices/platform/b")

	r.Remove("/devices/platform/a")
	require.Len(t, r.nodes, 1)
	assert.Equal(t, "b", r.nodes[0].Name)

	// Removing an unknown path is a no-op.
	r.Remove("/devices/platform/zzz")
	assert.Len(t, r.nodes, 1)
}
