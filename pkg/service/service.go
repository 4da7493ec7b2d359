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

// Package service assembles the device manager: it wires the uevent
// sockets, the device pipeline, module autoloading and the firmware server,
// runs coldboot once, and then consumes events until shut down.
//
// Two independent subscriptions to the uevent multicast group feed two
// consumers. The device consumer runs the full pipeline; the firmware
// consumer handles only firmware add requests, whose retry sleeps and blob
// copies must not stall device processing.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/HotplugProject/hotplugd-core/pkg/config"
	"github.com/HotplugProject/hotplugd-core/pkg/devices"
	"github.com/HotplugProject/hotplugd-core/pkg/firmware"
	"github.com/HotplugProject/hotplugd-core/pkg/kmod"
	"github.com/HotplugProject/hotplugd-core/pkg/modules"
	"github.com/HotplugProject/hotplugd-core/pkg/selabel"
	"github.com/HotplugProject/hotplugd-core/pkg/uevent"
)

// Options carries the process-level collaborators. Zero fields select the
// production defaults.
type Options struct {
	Fs         afero.Fs
	Clock      clockwork.Clock
	Nodes      devices.NodeOps
	Labels     *selabel.Store
	OpenSocket func(bufferBytes int) (uevent.Source, error)

	// ModuleBase overrides the kernel module directory; empty resolves it
	// from the running kernel at startup.
	ModuleBase string
}

// Service is one running device manager.
type Service struct {
	fs        afero.Fs
	clock     clockwork.Clock
	cfg       config.Values
	manager   *devices.Manager
	mods      *modules.Loader
	fwServer  *firmware.Server
	devSock   uevent.Source
	fwSock    uevent.Source
	isBooting func() bool
}

// New assembles a Service from the configuration. Missing rule files are
// tolerated: the manager must come up even while its own configuration is
// still becoming available.
func New(cfg *config.Instance, opts Options) (*Service, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Nodes == nil {
		opts.Nodes = devices.UnixNodeOps{}
	}
	if opts.Labels == nil {
		opts.Labels = selabel.NewStore(selabel.Nop{})
	}
	if opts.OpenSocket == nil {
		opts.OpenSocket = func(bufferBytes int) (uevent.Source, error) {
			return uevent.OpenSocket(bufferBytes)
		}
	}

	vals := cfg.Values()

	perms := &devices.PermissionStore{}
	if err := devices.LoadRules(opts.Fs, vals.Rules.Path, perms); err != nil {
		log.Warn().Err(err).Msgf("no permission rules loaded from %s", vals.Rules.Path)
	}

	isBooting := func() bool {
		ok, err := afero.Exists(opts.Fs, vals.Sentinels.Booting)
		return err == nil && ok
	}

	moduleBase := opts.ModuleBase
	if moduleBase == "" {
		moduleBase = vals.Modules.BasePath
	}
	if moduleBase == "" {
		moduleBase = kmod.DefaultModulePath()
	}
	inserter := kmod.NewLoader(opts.Fs, moduleBase)
	mods := modules.NewLoader(opts.Fs, inserter,
		moduleBase+"/modules.alias", vals.Modules.BlacklistPath, isBooting)

	manager := devices.NewManager(opts.Fs, opts.Nodes, opts.Labels, mods,
		perms, subsystemEntries(vals.Subsystems))

	fwDirs := vals.Firmware.SearchDirs
	if len(fwDirs) == 0 {
		fwDirs = firmware.DefaultDirs
	}
	fwServer := firmware.NewServer(opts.Fs, opts.Clock, fwDirs, isBooting)

	devSock, err := opts.OpenSocket(uevent.ReceiveBufferSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open device socket: %w", err)
	}
	fwSock, err := opts.OpenSocket(uevent.ReceiveBufferSize)
	if err != nil {
		_ = devSock.Close()
		return nil, fmt.Errorf("failed to open firmware socket: %w", err)
	}

	return &Service{
		fs:        opts.Fs,
		clock:     opts.Clock,
		cfg:       vals,
		manager:   manager,
		mods:      mods,
		fwServer:  fwServer,
		devSock:   devSock,
		fwSock:    fwSock,
		isBooting: isBooting,
	}, nil
}

func subsystemEntries(entries []config.Subsystem) []devices.Subsystem {
	out := make([]devices.Subsystem, 0, len(entries))
	for _, e := range entries {
		source := devices.DevnameDevpath
		if e.Devname == config.DevnameUevent {
			source = devices.DevnameUevent
		}
		out = append(out, devices.Subsystem{Name: e.Name, DirName: e.DirName, Source: source})
	}
	return out
}

// Run performs coldboot if needed, then consumes events until ctx is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.coldboot()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.eventLoop(ctx, s.devSock, s.manager.HandleEvent)
	}()
	go func() {
		defer wg.Done()
		s.eventLoop(ctx, s.fwSock, s.fwServer.HandleEvent)
	}()

	<-ctx.Done()

	// Closing the sockets unblocks the receive loops.
	_ = s.devSock.Close()
	_ = s.fwSock.Close()
	wg.Wait()
	return nil
}

// coldboot replays add events for pre-existing devices, then drains the
// deferred module queue and drops the done sentinel. A sentinel left by a
// previous run (a daemon restart) skips the walk entirely.
func (s *Service) coldboot() {
	done := s.cfg.Sentinels.ColdbootDone
	if ok, err := afero.Exists(s.fs, done); err == nil && ok {
		log.Warn().Msg("skipping coldboot, already done")
		return
	}

	start := s.clock.Now()
	s.manager.Coldboot(func() { s.drainDeviceSocket() })
	s.mods.DrainDeferred()

	if err := afero.WriteFile(s.fs, done, nil, 0o000); err != nil {
		log.Error().Err(err).Msgf("failed to create %s", done)
	}
	log.Warn().Msgf("coldboot took %.2fs", s.clock.Since(start).Seconds())
}

// drainDeviceSocket processes every queued datagram without blocking. The
// coldboot walk calls this between pokes so the kernel-side buffer cannot
// overflow under the event burst.
func (s *Service) drainDeviceSocket() {
	buf := make([]byte, uevent.MsgLen+2)
	for {
		n, err := s.devSock.ReceiveNonblock(buf)
		if err != nil {
			return
		}
		if n >= uevent.MsgLen {
			continue // overflow -- discard
		}
		s.manager.HandleEvent(uevent.Parse(buf[:n]))
	}
}

func (s *Service) eventLoop(ctx context.Context, sock uevent.Source, handle func(*uevent.Event)) {
	buf := make([]byte, uevent.MsgLen+2)
	for {
		n, err := sock.Receive(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, os.ErrClosed) {
				return
			}
			log.Error().Err(err).Msg("failed to receive uevent")
			return
		}
		if n >= uevent.MsgLen {
			continue // overflow -- discard
		}
		handle(uevent.Parse(buf[:n]))
	}
}
