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
	"time"

	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/platforms"
	"github.com/ShareMountProject/sharemount-core/pkg/service/state"
	"github.com/ShareMountProject/sharemount-core/pkg/smb"
	"github.com/ShareMountProject/sharemount-core/pkg/testing/mocks"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const coordMountedDocs = "//alice@nas.local/docs on /Users/alice/Shares/docs " +
	"(smbfs, nodev, nosuid, mounted by alice)\n"

const coordFinderDocs = "//bob@nas.local/docs on /Volumes/docs " +
	"(smbfs, nodev, nosuid, mounted by bob)\n"

func newTestCoordinator(t *testing.T) (*Coordinator, *mocks.MockCommandExecutor, <-chan models.Notification) {
	t.Helper()

	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)

	pl := &mocks.StubPlatform{
		Dirs:      platforms.Settings{DataDir: t.TempDir()},
		MountRoot: "/Users/alice/Shares",
	}

	st, ns := state.NewState(pl)
	t.Cleanup(st.StopService)

	mockCmd := &mocks.MockCommandExecutor{}
	backend := smb.NewBackend(cfg, pl, mockCmd, afero.NewMemMapFs())

	coord := NewCoordinator(st, backend)
	// keep the advisory probe off the network in tests
	coord.precheck = func(context.Context, string) smb.Connectivity {
		return smb.Connectivity{Accessible: true, Method: "smb"}
	}
	return coord, mockCmd, ns
}

func TestCoordinateMountSuccess(t *testing.T) {
	t.Parallel()

	c, mockCmd, _ := newTestCoordinator(t)

	// conflict detection and pre-check see an empty table, the post-check
	// sees the new mount
	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(""), nil).Twice()
	mockCmd.On("Output", mock.Anything, "mount_smbfs", mock.Anything).
		Return([]byte(""), nil).Once()
	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(coordMountedDocs), nil).Once()

	outcome, err := c.CoordinateMount(context.Background(), "nas.local/docs", "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "/Users/alice/Shares/docs", outcome.MountPoint)
	assert.Equal(t, 0, outcome.ConflictsResolved)
	mockCmd.AssertExpectations(t)
}

func TestCoordinateMountUnreachableServerStillMounts(t *testing.T) {
	t.Parallel()

	c, mockCmd, _ := newTestCoordinator(t)

	// the probe sees the host portion only and its verdict is advisory
	var probedServer string
	c.precheck = func(_ context.Context, server string) smb.Connectivity {
		probedServer = server
		return smb.Connectivity{Accessible: false}
	}

	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(""), nil).Twice()
	mockCmd.On("Output", mock.Anything, "mount_smbfs", mock.Anything).
		Return([]byte(""), nil).Once()
	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(coordMountedDocs), nil).Once()

	outcome, err := c.CoordinateMount(context.Background(), "smb://alice@NAS.local/docs", "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "nas.local", probedServer)
	assert.Equal(t, "/Users/alice/Shares/docs", outcome.MountPoint)
	mockCmd.AssertExpectations(t)
}

func TestCoordinateMountResolvesConflict(t *testing.T) {
	t.Parallel()

	c, mockCmd, ns := newTestCoordinator(t)

	// a Finder mount of the same share occupies /Volumes/docs
	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(coordFinderDocs), nil).Twice()
	mockCmd.On("Run", mock.Anything, "diskutil", []string{"eject", "/Volumes/docs"}).
		Return(nil).Once()
	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(""), nil).Once()
	mockCmd.On("Output", mock.Anything, "mount_smbfs", mock.Anything).
		Return([]byte(""), nil).Once()
	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(coordMountedDocs), nil).Once()

	outcome, err := c.CoordinateMount(context.Background(), "nas.local/docs", "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "/Users/alice/Shares/docs", outcome.MountPoint)
	assert.Equal(t, 1, outcome.ConflictsResolved)
	mockCmd.AssertExpectations(t)

	notifs := drainNotifications(ns)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotificationConflictsResolved, notifs[0].Method)
}

func TestCoordinateMountProceedsWhenCleanupFails(t *testing.T) {
	t.Parallel()

	c, mockCmd, _ := newTestCoordinator(t)

	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(coordFinderDocs), nil).Twice()
	mockCmd.On("Run", mock.Anything, "diskutil", []string{"eject", "/Volumes/docs"}).
		Return(errors.New("eject failed")).Once()
	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(""), nil).Once()
	mockCmd.On("Output", mock.Anything, "mount_smbfs", mock.Anything).
		Return([]byte(""), nil).Once()
	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(coordMountedDocs), nil).Once()

	outcome, err := c.CoordinateMount(context.Background(), "nas.local/docs", "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "/Users/alice/Shares/docs", outcome.MountPoint)
	assert.Equal(t, 0, outcome.ConflictsResolved)
}

func TestCoordinateMountJoinsInFlightCall(t *testing.T) {
	t.Parallel()

	c, mockCmd, _ := newTestCoordinator(t)

	// a mount for the same share is already in flight, so the joiner waits
	// for its result and never touches the backend
	call := &mountCall{done: make(chan struct{})}
	c.mu.Lock()
	c.inFlight["nas.local/docs"] = call
	c.mu.Unlock()

	go func() {
		call.outcome = MountOutcome{MountPoint: "/Users/alice/Shares/docs"}
		close(call.done)
	}()

	outcome, err := c.CoordinateMount(context.Background(), "smb://NAS.local/docs/", "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "/Users/alice/Shares/docs", outcome.MountPoint)
	mockCmd.AssertExpectations(t)
	mockCmd.AssertNotCalled(t, "Output", mock.Anything, "mount_smbfs", mock.Anything)
}

func TestCoordinateMountJoinerHonorsContext(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator(t)

	call := &mountCall{done: make(chan struct{})}
	c.mu.Lock()
	c.inFlight["nas.local/docs"] = call
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.CoordinateMount(ctx, "nas.local/docs", "alice", "pw")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
