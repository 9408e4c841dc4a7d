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
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ShareMountProject/sharemount-core/pkg/platforms"
	"github.com/ShareMountProject/sharemount-core/pkg/service/state"
	"github.com/ShareMountProject/sharemount-core/pkg/testing/mocks"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep(context.Context) []string {
	c.calls.Add(1)
	return nil
}

func newEjectWatcherState(t *testing.T) *state.State {
	t.Helper()

	pl := &mocks.StubPlatform{Dirs: platforms.Settings{DataDir: t.TempDir()}}
	st, _ := state.NewState(pl)
	t.Cleanup(st.StopService)
	return st
}

func TestEjectWatcherSweepsOnVolumeEvents(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	st := newEjectWatcherState(t)
	sweeper := &countingSweeper{}

	w := NewEjectWatcher(st, sweeper, root)
	require.NoError(t, w.Start())

	volume := filepath.Join(root, "docs")
	require.NoError(t, os.Mkdir(volume, 0o750))
	require.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 1
	}, 2*time.Second, 20*time.Millisecond, "volume appearing should trigger a sweep")

	require.NoError(t, os.Remove(volume))
	require.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2
	}, 2*time.Second, 20*time.Millisecond, "volume disappearing should trigger a sweep")
}

func TestEjectWatcherSkipsMissingRoots(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	st := newEjectWatcherState(t)
	sweeper := &countingSweeper{}

	// a missing root is skipped as long as one root is watchable
	w := NewEjectWatcher(st, sweeper, filepath.Join(root, "missing"), root)
	require.NoError(t, w.Start())
}

func TestEjectWatcherFailsWithNoWatchableRoots(t *testing.T) {
	t.Parallel()

	st := newEjectWatcherState(t)

	w := NewEjectWatcher(st, &countingSweeper{}, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, w.Start())
}
