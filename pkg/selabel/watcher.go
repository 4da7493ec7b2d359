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

package selabel

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher swaps the Store's handle whenever the policy status file changes.
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch installs an fsnotify watch on statusPath. On every write or create
// event, open is invoked and its result replaces the store's handle; the
// previous handle is dropped. Errors from open keep the old handle in place.
func Watch(statusPath string, store *Store, open func() (Handle, error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create policy watcher: %w", err)
	}
	if err := fw.Add(statusPath); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", statusPath, err)
	}

	w := &Watcher{watcher: fw, done: make(chan struct{})}
	go w.run(store, open)
	return w, nil
}

func (w *Watcher) run(store *Store, open func() (Handle, error)) {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			h, err := open()
			if err != nil {
				log.Error().Err(err).Msg("policy updated but reopening label database failed")
				continue
			}
			store.Replace(h)
			log.Info().Str("status", ev.Name).Msg("label database reloaded")
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("policy watcher error")
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
