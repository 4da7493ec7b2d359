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

	"github.com/HotplugProject/hotplugd-core/pkg/modules"
	"github.com/HotplugProject/hotplugd-core/pkg/selabel"
	"github.com/HotplugProject/hotplugd-core/pkg/testing/helpers"
	"github.com/HotplugProject/hotplugd-core/pkg/uevent"
)

type nullInserter struct{}

func (nullInserter) InsertModuleWithDeps(string, string) error { return nil }

func newTestManager(t *testing.T, subsystems ...Subsystem) (*Manager, *helpers.FakeNodeOps, *helpers.FSHelper) {
	t.Helper()

	fsh := helpers.NewMemoryFS()
	ops := helpers.NewFakeNodeOps()
	mods := modules.NewLoader(fsh.Fs, nullInserter{}, "/lib/modules/modules.alias",
		"/etc/modules.blacklist", func() bool { return false })
	mgr := NewManager(fsh.Fs, ops, selabel.NewStore(selabel.Nop{}), mods,
		&PermissionStore{}, subsystems)
	return mgr, ops, fsh
}

const sdhciPlatformPath = "/devices/platform/soc/f9824900.sdhci"

func sdhciPartitionEvent() *uevent.Event {
	return &uevent.Event{
		Action:        uevent.ActionAdd,
		Path:          sdhciPlatformPath + "/mmc_host/mmc0/mmc0:0001/block/mmcblk0/mmcblk0p5",
		Subsystem:     "block",
		Major:         179,
		Minor:         5,
		PartitionNum:  5,
		PartitionName: "system",
	}
}

func TestBlockAddWithPartitions(t *testing.T) {
	t.Parallel()

	mgr, ops, _ := newTestManager(t)
	mgr.Platform().Add(sdhciPlatformPath)

	mgr.HandleEvent(sdhciPartitionEvent())

	require.Len(t, ops.Mknods, 1)
	node := ops.Mknods[0]
	assert.Equal(t, "/dev/block/mmcblk0p5", node.Path)
	assert.Equal(t, uint32(DefaultDevMode|sIFBLK), node.Mode)
	assert.Equal(t, makedev(179, 5), node.Dev)

	assert.Equal(t, []string{
		"/dev/block/platform/soc/f9824900.sdhci/by-name/system",
		"/dev/block/platform/soc/f9824900.sdhci/by-num/p5",
		"/dev/block/platform/soc/f9824900.sdhci/mmcblk0p5",
	}, ops.LinkNames())
	for _, target := range ops.Symlinks {
		assert.Equal(t, "/dev/block/mmcblk0p5", target)
	}
}

func TestPlatformRegistrationThenBlockEvent(t *testing.T) {
	t.Parallel()

	mgr, ops, _ := newTestManager(t)

	mgr.HandleEvent(&uevent.Event{
		Action: uevent.ActionAdd, Path: sdhciPlatformPath, Subsystem: "platform",
		Major: -1, Minor: -1, PartitionNum: -1,
	})

	pdev, ok := mgr.Platform().Find(sdhciPlatformPath + "/mmc_host")
	require.True(t, ok)
	assert.Equal(t, "soc/f9824900.sdhci", pdev.Name)

	mgr.HandleEvent(sdhciPartitionEvent())
	assert.Len(t, ops.LinkNames(), 3)

	mgr.HandleEvent(&uevent.Event{
		Action: uevent.ActionRemove, Path: sdhciPlatformPath, Subsystem: "platform",
		Major: -1, Minor: -1, PartitionNum: -1,
	})
	_, ok = mgr.Platform().Find(sdhciPlatformPath + "/mmc_host")
	assert.False(t, ok)
}

func TestOwnershipRoundTrip(t *testing.T) {
	t.Parallel()

	mgr, ops, _ := newTestManager(t)
	mgr.Platform().Add(sdhciPlatformPath)

	mgr.HandleEvent(sdhciPartitionEvent())
	require.Len(t, ops.LinkNames(), 3)

	removal := sdhciPartitionEvent()
	removal.Action = uevent.ActionRemove
	mgr.HandleEvent(removal)

	assert.Empty(t, ops.LinkNames(), "all created symlinks removed")
	assert.Contains(t, ops.Unlinks, "/dev/block/mmcblk0p5")
}

func TestUSBDeviceWithoutDevname(t *testing.T) {
	t.Parallel()

	mgr, ops, fsh := newTestManager(t)

	mgr.HandleEvent(&uevent.Event{
		Action:       uevent.ActionAdd,
		Path:         "/devices/pci0000:00/0000:00:14.0/usb2/2-3",
		Subsystem:    "usb",
		Major:        189,
		Minor:        130,
		PartitionNum: -1,
	})

	require.Len(t, ops.Mknods, 1)
	assert.Equal(t, "/dev/bus/usb/002/003", ops.Mknods[0].Path)
	assert.True(t, fsh.Exists("/dev/bus/usb/002"))
}

func TestUSBDeviceWithDevname(t *testing.T) {
	t.Parallel()

	mgr, ops, fsh := newTestManager(t)

	mgr.HandleEvent(&uevent.Event{
		Action:       uevent.ActionAdd,
		Path:         "/devices/pci0000:00/0000:00:14.0/usb1/1-2/1-2:1.0/usbmisc/hiddev0",
		Subsystem:    "usbmisc",
		DeviceName:   "usb/hiddev0",
		Major:        180,
		Minor:        96,
		PartitionNum: -1,
	})

	require.Len(t, ops.Mknods, 1)
	assert.Equal(t, "/dev/usb/hiddev0", ops.Mknods[0].Path)
	assert.True(t, fsh.Exists("/dev/usb"))
}

func TestOtherUSBSubsystemIgnored(t *testing.T) {
	t.Parallel()

	mgr, ops, _ := newTestManager(t)

	mgr.HandleEvent(&uevent.Event{
		Action: uevent.ActionAdd, Path: "/devices/x/usb_endpoint/ep_81",
		Subsystem: "usb_endpoint", Major: 189, Minor: 1, PartitionNum: -1,
	})

	assert.Empty(t, ops.Mknods)
}

func TestGenericSubsystemBases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		subsystem string
		leaf      string
		want      string
	}{
		{"graphics", "fb0", "/dev/graphics/fb0"},
		{"drm", "card0", "/dev/dri/card0"},
		{"input", "event3", "/dev/input/event3"},
		{"mtd", "mtd0", "/dev/mtd/mtd0"},
		{"sound", "pcmC0D0p", "/dev/snd/pcmC0D0p"},
		{"oncrpc", "00000000", "/dev/oncrpc/00000000"},
		{"adsp", "audio0", "/dev/adsp/audio0"},
		{"msm_camera", "config0", "/dev/msm_camera/config0"},
		{"rtc", "rtc0", "/dev/rtc0"},
	}

	for _, tt := range tests {
		t.Run(tt.subsystem, func(t *testing.T) {
			t.Parallel()

			mgr, ops, _ := newTestManager(t)
			mgr.HandleEvent(&uevent.Event{
				Action: uevent.ActionAdd, Path: "/devices/virtual/" + tt.subsystem + "/" + tt.leaf,
				Subsystem: tt.subsystem, Major: 10, Minor: 0, PartitionNum: -1,
			})

			require.Len(t, ops.Mknods, 1)
			assert.Equal(t, tt.want, ops.Mknods[0].Path)
			assert.Equal(t, uint32(DefaultDevMode|sIFCHR), ops.Mknods[0].Mode)
		})
	}
}

func TestMiscLogNameStripped(t *testing.T) {
	t.Parallel()

	mgr, ops, _ := newTestManager(t)

	mgr.HandleEvent(&uevent.Event{
		Action: uevent.ActionAdd, Path: "/devices/virtual/misc/log_main",
		Subsystem: "misc", Major: 10, Minor: 40, PartitionNum: -1,
	})

	require.Len(t, ops.Mknods, 1)
	assert.Equal(t, "/dev/log/main", ops.Mknods[0].Path)
}

func TestConfiguredSubsystemDevname(t *testing.T) {
	t.Parallel()

	mgr, ops, fsh := newTestManager(t,
		Subsystem{Name: "adf", DirName: "/dev/adf", Source: DevnameUevent},
		Subsystem{Name: "dsp", DirName: "/dev/dsp", Source: DevnameDevpath},
	)

	mgr.HandleEvent(&uevent.Event{
		Action: uevent.ActionAdd, Path: "/devices/virtual/adf/adf0",
		Subsystem: "adf", DeviceName: "adf/interface0", Major: 250, Minor: 0, PartitionNum: -1,
	})
	mgr.HandleEvent(&uevent.Event{
		Action: uevent.ActionAdd, Path: "/devices/virtual/dsp/dsp3",
		Subsystem: "dsp", Major: 250, Minor: 3, PartitionNum: -1,
	})

	require.Len(t, ops.Mknods, 2)
	assert.Equal(t, "/dev/adf/adf/interface0", ops.Mknods[0].Path)
	assert.Equal(t, "/dev/dsp/dsp3", ops.Mknods[1].Path)
	assert.True(t, fsh.Exists("/dev/adf/adf"))
}

func TestDevpathOverflowAbortsEvent(t *testing.T) {
	t.Parallel()

	longName := make([]byte, 90)
	for i := range longName {
		longName[i] = 'x'
	}

	mgr, ops, _ := newTestManager(t,
		Subsystem{Name: "bulk", DirName: "/dev/bulk", Source: DevnameUevent})

	mgr.HandleEvent(&uevent.Event{
		Action: uevent.ActionAdd, Path: "/devices/virtual/bulk/b0",
		Subsystem: "bulk", DeviceName: string(longName), Major: 100, Minor: 0, PartitionNum: -1,
	})

	assert.Empty(t, ops.Mknods)
}

func TestDeviceNameTooLongAbortsEvent(t *testing.T) {
	t.Parallel()

	longLeaf := make([]byte, 65)
	for i := range longLeaf {
		longLeaf[i] = 'y'
	}

	mgr, ops, _ := newTestManager(t)
	mgr.HandleEvent(&uevent.Event{
		Action: uevent.ActionAdd, Path: "/devices/virtual/misc/" + string(longLeaf),
		Subsystem: "misc", Major: 10, Minor: 1, PartitionNum: -1,
	})

	assert.Empty(t, ops.Mknods)
}

func TestEventWithoutMajorMinorIgnored(t *testing.T) {
	t.Parallel()

	mgr, ops, _ := newTestManager(t)
	mgr.HandleEvent(&uevent.Event{
		Action: uevent.ActionAdd, Path: "/devices/virtual/net/lo",
		Subsystem: "net", Major: -1, Minor: -1, PartitionNum: -1,
	})

	assert.Empty(t, ops.Mknods)
}
