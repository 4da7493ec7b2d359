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

package uevent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datagram(records ...string) []byte {
	return []byte(strings.Join(records, "\x00") + "\x00")
}

func TestParseBlockEvent(t *testing.T) {
	t.Parallel()

	ev := Parse(datagram(
		"add@/devices/platform/soc/f9824900.sdhci/mmc_host/mmc0/mmc0:0001/block/mmcblk0/mmcblk0p5",
		"ACTION=add",
		"DEVPATH=/devices/platform/soc/f9824900.sdhci/mmc_host/mmc0/mmc0:0001/block/mmcblk0/mmcblk0p5",
		"SUBSYSTEM=block",
		"MAJOR=179",
		"MINOR=5",
		"PARTN=5",
		"PARTNAME=system",
		"SEQNUM=2154",
	))

	require.NotNil(t, ev)
	assert.Equal(t, ActionAdd, ev.Action)
	assert.Equal(t, "block", ev.Subsystem)
	assert.Equal(t, 179, ev.Major)
	assert.Equal(t, 5, ev.Minor)
	assert.Equal(t, 5, ev.PartitionNum)
	assert.Equal(t, "system", ev.PartitionName)
	assert.True(t, strings.HasSuffix(ev.Path, "/block/mmcblk0/mmcblk0p5"))
}

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	ev := Parse(datagram("ACTION=change", "DEVPATH=/devices/virtual/misc/loop-control"))

	assert.Equal(t, ActionChange, ev.Action)
	assert.Empty(t, ev.Subsystem)
	assert.Empty(t, ev.Firmware)
	assert.Empty(t, ev.PartitionName)
	assert.Empty(t, ev.DeviceName)
	assert.Empty(t, ev.Modalias)
	assert.Equal(t, -1, ev.Major)
	assert.Equal(t, -1, ev.Minor)
	assert.Equal(t, -1, ev.PartitionNum)
}

func TestParseEmptyDatagram(t *testing.T) {
	t.Parallel()

	ev := Parse(nil)

	assert.Empty(t, ev.Action)
	assert.Empty(t, ev.Path)
	assert.Equal(t, -1, ev.Major)
}

func TestParseIgnoresUnknownKeys(t *testing.T) {
	t.Parallel()

	ev := Parse(datagram("ACTION=add", "DRIVER=usb-storage", "BUSNUM=002", "MODALIAS=usb:v1D6Bp0002"))

	assert.Equal(t, "usb:v1D6Bp0002", ev.Modalias)
	assert.Empty(t, ev.DeviceName)
}

func TestParseIntegerFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want int
	}{
		{"plain", "42", 42},
		{"zero", "0", 0},
		{"trailing garbage", "7abc", 7},
		{"no digits", "abc", 0},
		{"empty", "", 0},
		{"negative", "-3", -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev := Parse(datagram("MAJOR=" + tt.in))
			assert.Equal(t, tt.want, ev.Major)
		})
	}
}

func TestParseFirmwareEvent(t *testing.T) {
	t.Parallel()

	ev := Parse(datagram(
		"add@/class/firmware/wlan",
		"ACTION=add",
		"DEVPATH=/class/firmware/wlan",
		"SUBSYSTEM=firmware",
		"FIRMWARE=wlan.bin",
	))

	assert.Equal(t, "firmware", ev.Subsystem)
	assert.Equal(t, "wlan.bin", ev.Firmware)
}
