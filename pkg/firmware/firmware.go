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

// Package firmware services kernel firmware requests: when a device driver
// asks for a blob, the kernel raises a firmware add uevent and exposes a
// loading/data file pair under /sys. The server finds the named blob on a
// prioritized search path and feeds it through that protocol, retrying for
// as long as the system is still booting and the firmware filesystems may
// not be mounted yet.
package firmware

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/HotplugProject/hotplugd-core/pkg/uevent"
)

const (
	// retryDelay is the pause between search attempts while booting.
	retryDelay = 100 * time.Millisecond

	// copyChunk matches the page-sized buffer the data sink is fed with.
	copyChunk = 4096
)

// Server answers firmware add events. It owns no socket; the service layer
// feeds it events from its own uevent subscription.
type Server struct {
	fs        afero.Fs
	clock     clockwork.Clock
	dirs      []string
	isBooting func() bool
}

// NewServer builds a Server searching dirs in order. isBooting gates the
// retry loop.
func NewServer(fsys afero.Fs, clock clockwork.Clock, dirs []string, isBooting func() bool) *Server {
	return &Server{
		fs:        fsys,
		clock:     clock,
		dirs:      dirs,
		isBooting: isBooting,
	}
}

// HandleEvent processes one uevent, ignoring everything that is not a
// firmware add request.
func (s *Server) HandleEvent(ev *uevent.Event) {
	if ev.Subsystem != "firmware" || ev.Action != uevent.ActionAdd {
		return
	}
	s.process(ev)
}

func (s *Server) process(ev *uevent.Event) {
	log.Info().Msgf("firmware: loading '%s' for '%s'", ev.Firmware, ev.Path)

	root := "/sys" + ev.Path + "/"

	loading, err := s.fs.OpenFile(root+"loading", os.O_WRONLY, 0)
	if err != nil {
		log.Error().Err(err).Msgf("firmware: cannot open loading sink for %s", ev.Firmware)
		return
	}
	defer func() { _ = loading.Close() }()

	data, err := s.fs.OpenFile(root+"data", os.O_WRONLY, 0)
	if err != nil {
		log.Error().Err(err).Msgf("firmware: cannot open data sink for %s", ev.Firmware)
		return
	}
	defer func() { _ = data.Close() }()

	booting := s.isBooting()
	for {
		fw, err := s.openFirmware(ev.Firmware)
		if err == nil {
			if err := copyFirmware(fw, loading, data); err != nil {
				log.Warn().Err(err).Msgf("firmware: copy failure { '%s', '%s' }", root, ev.Firmware)
			} else {
				log.Info().Msgf("firmware: copy success { '%s', '%s' }", root, ev.Firmware)
			}
			_ = fw.Close()
			return
		}

		if !booting {
			break
		}
		// The firmware filesystems may not be mounted yet; wait and retry
		// for as long as boot is still in progress.
		s.clock.Sleep(retryDelay)
		booting = s.isBooting()
	}

	log.Warn().Msgf("firmware: could not find '%s'", ev.Firmware)
	if _, err := loading.Write([]byte("-1")); err != nil {
		log.Error().Err(err).Msg("firmware: failed to abort transfer")
	}
}

// openFirmware tries each search directory in order; the first hit wins.
func (s *Server) openFirmware(name string) (afero.File, error) {
	for _, dir := range s.dirs {
		f, err := s.fs.Open(dir + "/" + name)
		if err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("firmware %s not present in %v", name, s.dirs)
}

// copyFirmware runs the sysfs loading protocol: "1" starts the transfer,
// the blob streams into data page by page, then "0" commits or "-1"
// aborts. Exactly one terminal status is written.
func copyFirmware(fw io.Reader, loading, data afero.File) error {
	if _, err := loading.Write([]byte("1")); err != nil {
		return fmt.Errorf("failed to start transfer: %w", err)
	}

	buf := make([]byte, copyChunk)
	var copyErr error
	for {
		n, err := fw.Read(buf)
		if n > 0 {
			if _, werr := data.Write(buf[:n]); werr != nil {
				copyErr = fmt.Errorf("failed to write firmware data: %w", werr)
				break
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			copyErr = fmt.Errorf("failed to read firmware: %w", err)
			break
		}
	}

	if copyErr != nil {
		_, _ = loading.Write([]byte("-1"))
		return copyErr
	}
	if _, err := loading.Write([]byte("0")); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}
	return nil
}
