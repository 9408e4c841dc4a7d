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
	"testing"
	"time"

	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/database/userdb"
	"github.com/ShareMountProject/sharemount-core/pkg/keychain"
	"github.com/ShareMountProject/sharemount-core/pkg/platforms"
	"github.com/ShareMountProject/sharemount-core/pkg/service/state"
	"github.com/ShareMountProject/sharemount-core/pkg/smb"
	"github.com/ShareMountProject/sharemount-core/pkg/testing/mocks"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	creds  map[string]string
	legacy map[string]string
}

func newMemStore() *memStore {
	return &memStore{creds: map[string]string{}, legacy: map[string]string{}}
}

func (s *memStore) Get(_ context.Context, id string) (string, error) {
	if p, ok := s.creds[id]; ok {
		return p, nil
	}
	return "", keychain.ErrCredentialNotFound
}

func (s *memStore) GetLegacy(_ context.Context, sharePath string) (string, error) {
	if p, ok := s.legacy[sharePath]; ok {
		return p, nil
	}
	return "", keychain.ErrCredentialNotFound
}

func (s *memStore) Set(_ context.Context, id, password string) error {
	s.creds[id] = password
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	delete(s.creds, id)
	return nil
}

type autoMountFixture struct {
	am      *AutoMounter
	st      *state.State
	cfg     *config.Instance
	db      *userdb.UserDB
	keys    *memStore
	mockCmd *mocks.MockCommandExecutor
	ns      <-chan models.Notification
}

func newAutoMountFixture(t *testing.T) *autoMountFixture {
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
	coord := NewCoordinator(st, backend)
	coord.precheck = func(context.Context, string) smb.Connectivity {
		return smb.Connectivity{Accessible: true, Method: "smb"}
	}
	keys := newMemStore()

	return &autoMountFixture{
		am:      NewAutoMounter(st, cfg, userDB, keys, coord, backend),
		st:      st,
		cfg:     cfg,
		db:      userDB,
		keys:    keys,
		mockCmd: mockCmd,
		ns:      ns,
	}
}

func TestAutoMountSweepMountsSavedConnection(t *testing.T) {
	t.Parallel()

	f := newAutoMountFixture(t)

	conn, err := f.db.AddConnection("Docs", "nas.local/docs", "alice", true)
	require.NoError(t, err)
	f.keys.creds[conn.ID] = "pw"

	f.mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(""), nil).Twice()
	f.mockCmd.On("Output", mock.Anything, "mount_smbfs", mock.Anything).
		Return([]byte(""), nil).Once()
	f.mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(coordMountedDocs), nil).Once()

	result := f.am.AutoMountConnections(context.Background(), "startup")
	require.NotNil(t, result)

	assert.Equal(t, "startup", result.Trigger)
	assert.Equal(t, 1, result.Summary.TotalAttempted)
	assert.Equal(t, 1, result.Summary.Successful)
	assert.Equal(t, 0, result.Summary.Failed)

	share, ok := f.st.GetMountedShare("Docs")
	require.True(t, ok)
	assert.Equal(t, "/Users/alice/Shares/docs", share.MountPoint)

	// a successful auto-mount counts as use
	saved, err := f.db.GetConnection(conn.ID)
	require.NoError(t, err)
	assert.NotNil(t, saved.LastUsed)

	notifs := drainNotifications(f.ns)
	require.NotEmpty(t, notifs)
	assert.Equal(t, models.NotificationAutoMountCompleted, notifs[len(notifs)-1].Method)
}

func TestAutoMountSkipsAlreadyMountedShare(t *testing.T) {
	t.Parallel()

	f := newAutoMountFixture(t)

	conn, err := f.db.AddConnection("Docs", "nas.local/docs", "alice", true)
	require.NoError(t, err)
	f.keys.creds[conn.ID] = "pw"

	require.NoError(t, f.st.AddMountedShare(state.MountedShare{
		Label:      "Docs",
		SharePath:  "nas.local/docs",
		Username:   "alice",
		MountPoint: "/Users/alice/Shares/docs",
		MountedAt:  time.Now(),
	}))

	result := f.am.AutoMountConnections(context.Background(), "network-online")
	require.NotNil(t, result)

	require.Len(t, result.Results, 1)
	assert.True(t, result.Results[0].Skipped)
	assert.Equal(t, 0, result.Summary.TotalAttempted)
	f.mockCmd.AssertNotCalled(t, "Output", mock.Anything, "mount_smbfs", mock.Anything)
}

func TestAutoMountFailureDoesNotAbortSweep(t *testing.T) {
	t.Parallel()

	f := newAutoMountFixture(t)

	good, err := f.db.AddConnection("Docs", "nas.local/docs", "alice", true)
	require.NoError(t, err)
	f.keys.creds[good.ID] = "pw"

	// no stored credential for this one
	_, err = f.db.AddConnection("Media", "nas.local/media", "alice", true)
	require.NoError(t, err)

	f.mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(""), nil).Twice()
	f.mockCmd.On("Output", mock.Anything, "mount_smbfs", mock.Anything).
		Return([]byte(""), nil).Once()
	f.mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(coordMountedDocs), nil).Once()

	result := f.am.AutoMountConnections(context.Background(), "startup")
	require.NotNil(t, result)

	assert.Equal(t, 2, result.Summary.TotalAttempted)
	assert.Equal(t, 1, result.Summary.Successful)
	assert.Equal(t, 1, result.Summary.Failed)

	byLabel := map[string]models.AutoMountResult{}
	for _, res := range result.Results {
		byLabel[res.Label] = res
	}
	assert.True(t, byLabel["Docs"].Success)
	assert.False(t, byLabel["Media"].Success)
	assert.Equal(t, "credentials missing", byLabel["Media"].Message)
}

func TestAutoMountDisabledSkipsSweep(t *testing.T) {
	t.Parallel()

	f := newAutoMountFixture(t)
	f.cfg.SetAutoMountEnabled(false)

	_, err := f.db.AddConnection("Docs", "nas.local/docs", "alice", true)
	require.NoError(t, err)

	result := f.am.AutoMountConnections(context.Background(), "startup")
	assert.Nil(t, result)
	assert.Empty(t, drainNotifications(f.ns))
}

func TestAutoMountCoalescesConcurrentTriggers(t *testing.T) {
	t.Parallel()

	f := newAutoMountFixture(t)

	// a sweep is in flight, so a new trigger is queued instead of stacked
	f.am.mu.Lock()
	f.am.running = true
	f.am.mu.Unlock()

	result := f.am.AutoMountConnections(context.Background(), "network-online")
	assert.Nil(t, result)

	f.am.mu.Lock()
	pending := f.am.pending
	f.am.mu.Unlock()
	assert.Equal(t, "network-online", pending)

	// finishing the in-flight sweep replays the queued trigger
	f.am.finishSweep(context.Background())

	require.Eventually(t, func() bool {
		for _, n := range drainNotifications(f.ns) {
			if n.Method != models.NotificationAutoMountCompleted {
				continue
			}
			params, ok := n.Params.(models.AutoMountCompletedParams)
			if ok && params.Trigger == "network-online" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestRemountConnectionReplacesLiveMount(t *testing.T) {
	t.Parallel()

	f := newAutoMountFixture(t)

	conn, err := f.db.AddConnection("Docs", "nas.local/docs", "alice", true)
	require.NoError(t, err)
	f.keys.creds[conn.ID] = "pw"

	require.NoError(t, f.st.AddMountedShare(state.MountedShare{
		Label:      "Docs",
		SharePath:  "nas.local/docs",
		Username:   "alice",
		MountPoint: "/Users/alice/Shares/docs",
		MountedAt:  time.Now(),
	}))

	// tear down the live mount
	f.mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(coordMountedDocs), nil).Once()
	f.mockCmd.On("Run", mock.Anything, "umount", []string{"/Users/alice/Shares/docs"}).
		Return(nil).Once()
	// then mount it again
	f.mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(""), nil).Twice()
	f.mockCmd.On("Output", mock.Anything, "mount_smbfs", mock.Anything).
		Return([]byte(""), nil).Once()
	f.mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(coordMountedDocs), nil).Once()

	require.NoError(t, f.am.RemountConnection(context.Background(), conn.ID))

	share, ok := f.st.GetMountedShare("Docs")
	require.True(t, ok)
	assert.Equal(t, "/Users/alice/Shares/docs", share.MountPoint)
	f.mockCmd.AssertExpectations(t)
}
