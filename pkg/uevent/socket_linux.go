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

package uevent

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	// ReceiveBufferSize is the kernel-side receive buffer requested for the
	// uevent socket. udev asks for 16 MiB; 8 MiB has been enough in practice.
	ReceiveBufferSize = 8 * 1024 * 1024

	// MsgLen bounds the datagrams the pipeline will process. Reads of MsgLen
	// bytes or more are treated as overflow and discarded.
	MsgLen = 2048

	kernelMulticastGroup = 0x1
)

// ErrDrained is returned by ReceiveNonblock when the socket has no queued
// datagrams.
var ErrDrained = errors.New("uevent: socket drained")

// Source is one subscription to the kernel uevent multicast group. Both the
// device pipeline and the firmware server hold their own Source so neither
// can starve the other.
type Source interface {
	// Receive blocks until a datagram from the kernel arrives and copies it
	// into buf, returning its length.
	Receive(buf []byte) (int, error)
	// ReceiveNonblock is Receive but returns ErrDrained instead of waiting.
	ReceiveNonblock(buf []byte) (int, error)
	Close() error
}

// Socket is a Source backed by an AF_NETLINK/NETLINK_KOBJECT_UEVENT socket.
type Socket struct {
	fd int
}

// OpenSocket subscribes to the kernel uevent multicast group with the given
// receive buffer size. The descriptor is close-on-exec.
func OpenSocket(bufferBytes int) (*Socket, error) {
	fd, err := unix.Socket(
		unix.AF_NETLINK,
		unix.SOCK_DGRAM|unix.SOCK_CLOEXEC,
		unix.NETLINK_KOBJECT_UEVENT,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open uevent socket: %w", err)
	}

	// SO_RCVBUFFORCE ignores rmem_max; fall back for non-root test runs.
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUFFORCE, bufferBytes); err != nil {
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, bufferBytes)
	}

	addr := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: kernelMulticastGroup,
	}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to bind uevent socket: %w", err)
	}

	return &Socket{fd: fd}, nil
}

// Receive blocks until the next kernel datagram. Messages from userspace
// senders are silently dropped: only the kernel (port id 0) may feed the
// device pipeline.
func (s *Socket) Receive(buf []byte) (int, error) {
	return s.recv(buf, 0)
}

// ReceiveNonblock reads one queued datagram, or returns ErrDrained.
func (s *Socket) ReceiveNonblock(buf []byte) (int, error) {
	n, err := s.recv(buf, unix.MSG_DONTWAIT)
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
		return 0, ErrDrained
	}
	return n, err
}

func (s *Socket) recv(buf []byte, flags int) (int, error) {
	for {
		n, from, err := unix.Recvfrom(s.fd, buf, flags)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return 0, err
		}
		nl, ok := from.(*unix.SockaddrNetlink)
		if !ok || nl.Pid != 0 {
			continue
		}
		return n, nil
	}
}

func (s *Socket) Close() error {
	if err := unix.Close(s.fd); err != nil {
		return fmt.Errorf("failed to close uevent socket: %w", err)
	}
	return nil
}
