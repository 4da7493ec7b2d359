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
	"fmt"
	"os/user"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/HotplugProject/hotplugd-core/pkg/rcfile"
)

// LoadRules reads a permission-rules file into the store. Two line shapes:
//
//	/dev/<node-pattern>           <mode> <user> <group>
//	/sys/<path-pattern> <attr>    <mode> <user> <group>
//
// A trailing '*' makes the pattern a prefix match; any other glob
// metacharacter makes it a wildcard match. Lines that fail to parse are
// logged and skipped; a bad rule must not take down startup.
func LoadRules(fsys afero.Fs, path string, store *PermissionStore) error {
	return rcfile.ParseFile(fsys, path, func(args []string) error {
		if err := addRule(store, args); err != nil {
			log.Error().Err(err).Strs("rule", args).Msg("ignoring bad permission rule")
		}
		return nil
	})
}

func addRule(store *PermissionStore, args []string) error {
	var name, attribute string
	switch {
	case len(args) == 4:
		name = args[0]
	case len(args) == 5 && strings.HasPrefix(args[0], "/sys/"):
		name, attribute = args[0], args[1]
	default:
		return fmt.Errorf("expected 4 or 5 fields, got %d", len(args))
	}

	mode, err := strconv.ParseUint(args[len(args)-3], 8, 32)
	if err != nil {
		return fmt.Errorf("bad mode %q: %w", args[len(args)-3], err)
	}
	uid, err := lookupUID(args[len(args)-2])
	if err != nil {
		return err
	}
	gid, err := lookupGID(args[len(args)-1])
	if err != nil {
		return err
	}

	name, match := classifyPattern(name)
	store.Add(name, attribute, uint32(mode), uid, gid, match)
	return nil
}

// classifyPattern picks the match kind the way the rule syntax encodes it:
// a single trailing '*' means prefix (and is stripped), any remaining glob
// metacharacter means wildcard.
func classifyPattern(name string) (string, MatchKind) {
	if strings.HasSuffix(name, "*") && !strings.ContainsAny(name[:len(name)-1], "*?[") {
		return name[:len(name)-1], MatchPrefix
	}
	if strings.ContainsAny(name, "*?[") {
		return name, MatchGlob
	}
	return name, MatchExact
}

func lookupUID(name string) (int, error) {
	if id, err := strconv.Atoi(name); err == nil {
		return id, nil
	}
	u, err := user.Lookup(name)
	if err != nil {
		return 0, fmt.Errorf("unknown user %q: %w", name, err)
	}
	id, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, fmt.Errorf("non-numeric uid for %q: %w", name, err)
	}
	return id, nil
}

func lookupGID(name string) (int, error) {
	if id, err := strconv.Atoi(name); err == nil {
		return id, nil
	}
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, fmt.Errorf("unknown group %q: %w", name, err)
	}
	id, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, fmt.Errorf("non-numeric gid for %q: %w", name, err)
	}
	return id, nil
}
