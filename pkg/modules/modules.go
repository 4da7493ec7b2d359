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

// Package modules drives kernel-module autoloading from MODALIAS uevent
// values. It owns the alias and blacklist tables and a queue of aliases that
// arrived before the tables could be read, drained once coldboot finishes.
package modules

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/HotplugProject/hotplugd-core/pkg/kmod"
	"github.com/HotplugProject/hotplugd-core/pkg/rcfile"
)

// TryLoad outcomes. The positive values double as the blacklist
// classification of a module name.
const (
	ResultLoaded   = 0
	ResultBlocked  = 1
	ResultDeferred = 2
	ResultNoMatch  = -1
)

// Alias maps a MODALIAS glob pattern to a module name, one modules.alias
// line.
type Alias struct {
	Module  string
	Pattern string
}

// BlacklistEntry marks a module as never-load, or as deferred until boot
// completes.
type BlacklistEntry struct {
	Module   string
	Deferred bool
}

// Loader owns the module tables and the deferred queue. It is confined to
// the event-loop goroutine and needs no locking.
type Loader struct {
	fs            afero.Fs
	inserter      kmod.Inserter
	aliasPath     string
	blacklistPath string
	isBooting     func() bool

	aliases   []Alias
	blacklist []BlacklistEntry
	deferred  []string
}

// NewLoader builds a Loader reading modules.alias from aliasPath and the
// blacklist from blacklistPath, inserting through inserter. isBooting gates
// deferred modules.
func NewLoader(fsys afero.Fs, inserter kmod.Inserter, aliasPath, blacklistPath string, isBooting func() bool) *Loader {
	return &Loader{
		fs:            fsys,
		inserter:      inserter,
		aliasPath:     aliasPath,
		blacklistPath: blacklistPath,
		isBooting:     isBooting,
	}
}

// classify reports how the blacklist treats a module name: ResultLoaded when
// loading may proceed, ResultBlocked when the module must never load,
// ResultDeferred when loading must wait for boot to finish.
func (l *Loader) classify(name string, needDeferred bool) int {
	for i := range l.blacklist {
		entry := &l.blacklist[i]
		if entry.Module != name {
			continue
		}
		log.Info().Str("module", name).Msg("module is blacklisted")
		if !entry.Deferred {
			return ResultBlocked
		}
		if needDeferred {
			return ResultDeferred
		}
		return ResultLoaded
	}
	return ResultLoaded
}

// TryLoad scans the alias table in order and attempts to insert every
// allowed module whose pattern matches modalias. It returns ResultLoaded if
// any insertion succeeded, ResultNoMatch if no pattern matched, and
// otherwise the outcome of the last matching entry (so callers can observe
// ResultDeferred and queue the alias).
func (l *Loader) TryLoad(modalias string, needDeferred bool) int {
	ret := ResultNoMatch
	loaded := false

	for i := range l.aliases {
		alias := &l.aliases[i]
		if !globMatch(alias.Pattern, modalias) {
			continue
		}

		log.Info().Str("module", alias.Module).Str("modalias", modalias).
			Msg("trying to load module for uevent")

		ret = l.classify(alias.Module, needDeferred)
		if ret != ResultLoaded {
			log.Warn().Str("module", alias.Module).Int("class", ret).Msg("blacklisted module")
			continue
		}

		if err := l.inserter.InsertModuleWithDeps(alias.Module, ""); err != nil {
			// Another alias entry may still match and succeed.
			log.Warn().Err(err).Str("module", alias.Module).Str("modalias", modalias).
				Msg("failed to load module for modalias")
			ret = ResultBlocked
			continue
		}

		log.Info().Str("module", alias.Module).Msg("loaded module for uevent")
		loaded = true
	}

	if loaded {
		return ResultLoaded
	}
	return ret
}

// HandleModalias is the dispatcher entry point for add events. The tables
// load lazily on first need; aliases that cannot be resolved yet, or that
// classify as deferred while booting, are queued for DrainDeferred.
func (l *Loader) HandleModalias(modalias string) {
	if len(l.aliases) == 0 {
		if err := l.readAliases(); err == nil {
			l.readBlacklist()
		} else if !errors.Is(err, fs.ErrNotExist) {
			log.Error().Err(err).Msg("failed to read module aliases")
		}
	}

	if modalias == "" {
		return
	}

	if len(l.aliases) == 0 || l.TryLoad(modalias, l.isBooting()) == ResultDeferred {
		l.deferred = append(l.deferred, modalias)
		log.Info().Str("modalias", modalias).Msg("queued for deferred module loading")
	}
}

// DrainDeferred retries every queued alias once, then drops the queue. It
// runs at the end of coldboot, after the module filesystem should be
// readable.
func (l *Loader) DrainDeferred() {
	if len(l.aliases) == 0 {
		return
	}
	for _, modalias := range l.deferred {
		log.Info().Str("modalias", modalias).Msg("deferred module loading")
		l.TryLoad(modalias, false)
	}
	l.deferred = nil
}

// Probe implements the modprobe entry point: the argument is tried as a
// modalias first, then as a plain module name with the remaining arguments
// joined into an option string.
func (l *Loader) Probe(args []string) error {
	if len(args) == 0 {
		return errors.New("no module or modalias given")
	}

	if len(l.aliases) == 0 {
		if err := l.readAliases(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Error().Err(err).Msg("failed to read module aliases")
		}
		l.readBlacklist()
	}

	if l.TryLoad(args[0], false) == ResultLoaded {
		return nil
	}

	options := strings.Join(args[1:], " ")
	return l.inserter.InsertModuleWithDeps(args[0], options)
}

func (l *Loader) readAliases() error {
	return rcfile.ParseFile(l.fs, l.aliasPath, func(args []string) error {
		if len(args) != 3 || args[0] != "alias" {
			return nil
		}
		l.aliases = append(l.aliases, Alias{Pattern: args[1], Module: args[2]})
		return nil
	})
}

func (l *Loader) readBlacklist() {
	err := rcfile.ParseFile(l.fs, l.blacklistPath, func(args []string) error {
		if len(args) != 2 {
			return nil
		}
		switch args[0] {
		case "blacklist":
			l.blacklist = append(l.blacklist, BlacklistEntry{Module: args[1]})
		case "deferred":
			l.blacklist = append(l.blacklist, BlacklistEntry{Module: args[1], Deferred: true})
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error().Err(err).Msg("failed to read module blacklist")
	}
}

// globMatch matches a MODALIAS value against a modules.alias pattern using
// filename-glob semantics. Malformed patterns match nothing.
func globMatch(pattern, value string) bool {
	ok, err := doublestar.Match(pattern, value)
	return err == nil && ok
}
