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

// Package uevent receives and decodes kernel hotplug notifications from the
// NETLINK_KOBJECT_UEVENT multicast group. A datagram is a sequence of
// NUL-terminated KEY=VALUE records; the leading "action@devpath" summary
// record carries no '=' and is skipped during decoding.
package uevent

import "strings"

// Actions the device pipeline reacts to. Any other string is carried through
// unchanged and ignored by the handlers.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
	ActionOnline = "online"
)

// Event is a single decoded uevent. String fields default to empty and the
// integer fields to -1 when the corresponding key is absent from the
// datagram. All fields are owned copies; the receive buffer may be reused as
// soon as Parse returns.
type Event struct {
	Action        string
	Path          string
	Subsystem     string
	Firmware      string
	PartitionName string
	DeviceName    string
	Modalias      string
	PartitionNum  int
	Major         int
	Minor         int
}

// Parse decodes a raw netlink datagram into an Event. Unknown keys are
// ignored.
func Parse(data []byte) *Event {
	ev := &Event{
		PartitionNum: -1,
		Major:        -1,
		Minor:        -1,
	}

	for _, rec := range strings.Split(string(data), "\x00") {
		i := strings.IndexByte(rec, '=')
		if i < 0 {
			continue
		}
		key, val := rec[:i], rec[i+1:]
		switch key {
		case "ACTION":
			ev.Action = val
		case "DEVPATH":
			ev.Path = val
		case "SUBSYSTEM":
			ev.Subsystem = val
		case "FIRMWARE":
			ev.Firmware = val
		case "MAJOR":
			ev.Major = atoi(val)
		case "MINOR":
			ev.Minor = atoi(val)
		case "PARTN":
			ev.PartitionNum = atoi(val)
		case "PARTNAME":
			ev.PartitionName = val
		case "DEVNAME":
			ev.DeviceName = val
		case "MODALIAS":
			ev.Modalias = val
		}
	}

	return ev
}

// atoi converts the leading decimal digits of s, matching C atoi: garbage
// after the number is ignored and a string with no digits converts to 0.
func atoi(s string) int {
	i, neg := 0, false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	n := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}
