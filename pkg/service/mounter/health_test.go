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
	"testing"

	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/database/userdb"
	"github.com/ShareMountProject/sharemount-core/pkg/platforms"
	"github.com/ShareMountProject/sharemount-core/pkg/service/state"
	"github.com/ShareMountProject/sharemount-core/pkg/smb"
	"github.com/ShareMountProject/sharemount-core/pkg/testing/mocks"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const healthMountTable = `/dev/disk3s1s1 on / (apfs, sealed, local, read-only, journaled)
//alice@nas.local/docs on /Users/alice/Shares/docs (smbfs, nodev, nosuid, mounted by alice)
`

type recordedRetry struct {
	connID string
	label  string
}

type retryRecorder struct {
	enqueued []recordedRetry
}

func (r *retryRecorder) EnqueueRetry(connID, label string) {
	r.enqueued = append(r.enqueued, recordedRetry{connID: connID, label: label})
}

type healthFixture struct {
	monitor *HealthMonitor
	st      *state.State
	db      *userdb.UserDB
	mockCmd *mocks.MockCommandExecutor
	retries *retryRecorder
	ns      <-chan models.Notification
}

func newHealthFixture(t *testing.T) *healthFixture {
	t.Helper()

	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)

	pl := &mocks.StubPlatform{
		Dirs:      platforms.Settings{DataDir: t.TempDir()},
		MountRoot: "/Users/alice/Shares",
	}

	userDB, err := userdb.OpenUserDB(context.Background(), pl)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = userDB.Close()
	})

	st, ns := state.NewState(pl)
	t.Cleanup(st.StopService)

	mockCmd := &mocks.MockCommandExecutor{}
	backend := smb.NewBackend(cfg, pl, mockCmd, afero.NewMemMapFs())
	retries := &retryRecorder{}

	return &healthFixture{
		monitor: NewHealthMonitor(st, cfg, userDB, backend, retries, nil),
		st:      st,
		db:      userDB,
		mockCmd: mockCmd,
		retries: retries,
		ns:      ns,
	}
}

func drainNotifications(ns <-chan models.Notification) []models.Notification {
	var out []models.Notification
	for {
		select {
		case n := <-ns:
			out = append(out, n)
		default:
			return out
		}
	}
}

func TestHealthSweepAllHealthy(t *testing.T) {
	t.Parallel()

	f := newHealthFixture(t)

	require.NoError(t, f.st.AddMountedShare(state.MountedShare{
		Label:      "Docs",
		SharePath:  "nas.local/docs",
		Username:   "alice",
		MountPoint: "/Users/alice/Shares/docs",
	}))
	drainNotifications(f.ns)

	f.mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(healthMountTable), nil).Once()

	assert.Empty(t, f.monitor.Sweep(context.Background()))
	assert.Len(t, f.st.ListMountedShares(), 1)
	assert.Empty(t, f.retries.enqueued)
	assert.Empty(t, drainNotifications(f.ns))
	f.mockCmd.AssertExpectations(t)
}

func TestHealthSweepDetectsVanishedMount(t *testing.T) {
	t.Parallel()

	f := newHealthFixture(t)

	conn, err := f.db.AddConnection("Media", "nas.local/media", "alice", true)
	require.NoError(t, err)

	require.NoError(t, f.st.AddMountedShare(state.MountedShare{
		Label:      "Media",
		SharePath:  "nas.local/media",
		Username:   "alice",
		MountPoint: "/Users/alice/Shares/media",
	}))
	drainNotifications(f.ns)

	// table only lists docs, media is gone
	f.mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(healthMountTable), nil).Once()

	disconnected := f.monitor.Sweep(context.Background())
	assert.Equal(t, []string{"Media"}, disconnected)
	assert.Empty(t, f.st.ListMountedShares())
	assert.Equal(t, []recordedRetry{{connID: conn.ID, label: "Media"}}, f.retries.enqueued)

	var methods []string
	for _, n := range drainNotifications(f.ns) {
		methods = append(methods, n.Method)
	}
	assert.Contains(t, methods, models.NotificationMountRemoved)
	assert.Contains(t, methods, models.NotificationSharesDisconnected)
}

func TestHealthSweepUnsavedMountNotRetried(t *testing.T) {
	t.Parallel()

	f := newHealthFixture(t)

	require.NoError(t, f.st.AddMountedShare(state.MountedShare{
		Label:      "Scratch",
		SharePath:  "nas.local/scratch",
		Username:   "alice",
		MountPoint: "/Users/alice/Shares/scratch",
	}))
	drainNotifications(f.ns)

	f.mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(healthMountTable), nil).Once()

	disconnected := f.monitor.Sweep(context.Background())
	assert.Equal(t, []string{"Scratch"}, disconnected)
	assert.Empty(t, f.retries.enqueued, "no saved connection means no retry")
}

func TestHealthSweepUnreadableMountTableIsInconclusive(t *testing.T) {
	t.Parallel()

	f := newHealthFixture(t)

	require.NoError(t, f.st.AddMountedShare(state.MountedShare{
		Label:      "Docs",
		SharePath:  "nas.local/docs",
		Username:   "alice",
		MountPoint: "/Users/alice/Shares/docs",
	}))
	drainNotifications(f.ns)

	f.mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(nil), errors.New("mount: fork failed")).Once()

	assert.Empty(t, f.monitor.Sweep(context.Background()))
	assert.Len(t, f.st.ListMountedShares(), 1, "shares stay tracked when the table is unreadable")
	assert.Empty(t, f.retries.enqueued)
}
