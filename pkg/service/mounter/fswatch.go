// Sharemount Core
// Copyright (c) 2026 The Sharemount Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Sharemount Core.
//
// Sharemount Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Sharemount Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Sharemount Core.  If not, see <http://www.gnu.org/licenses/>.

package mounter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ShareMountProject/sharemount-core/pkg/service/state"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Debounce window for filesystem events. Mount and eject both produce
// bursts of events on the parent directory.
const ejectDebounce = 100 * time.Millisecond

// Sweeper runs one reconciliation pass against the OS mount table.
// Satisfied by the health monitor.
type Sweeper interface {
	Sweep(ctx context.Context) []string
}

// EjectWatcher watches the mount root and /Volumes for volumes appearing
// or disappearing and runs a health sweep immediately, so a Finder eject
// is noticed within the debounce window instead of at the next ticker
// interval.
type EjectWatcher struct {
	st      *state.State
	sweeper Sweeper
	roots   []string
}

func NewEjectWatcher(st *state.State, sweeper Sweeper, roots ...string) *EjectWatcher {
	return &EjectWatcher{
		st:      st,
		sweeper: sweeper,
		roots:   roots,
	}
}

// Start begins watching and returns once the event loop is running. The
// loop stops when the state context is canceled. Roots that don't exist
// yet are skipped; an error is returned only when nothing is watchable.
func (w *EjectWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	watched := 0
	for _, root := range w.roots {
		if addErr := watcher.Add(root); addErr != nil {
			log.Debug().Err(addErr).Str("root", root).Msg("mount root not watchable")
			continue
		}
		watched++
	}
	if watched == 0 {
		_ = watcher.Close()
		return errors.New("no watchable mount roots")
	}

	go w.loop(watcher)

	log.Debug().Strs("roots", w.roots).Msg("watching mount roots for volume events")
	return nil
}

func (w *EjectWatcher) loop(watcher *fsnotify.Watcher) {
	defer func() {
		_ = watcher.Close()
	}()

	ctx := w.st.GetContext()

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// only direct children matter, those are the volumes
			if !w.isRoot(filepath.Dir(event.Name)) {
				continue
			}
			pending = true
			debounce.Reset(ejectDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("fsnotify error")

		case <-debounce.C:
			if pending {
				pending = false
				w.sweeper.Sweep(ctx)
			}
		}
	}
}

func (w *EjectWatcher) isRoot(dir string) bool {
	for _, root := range w.roots {
		if dir == filepath.Clean(root) {
			return true
		}
	}
	return false
}
