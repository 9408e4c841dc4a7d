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

package userdb

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ShareMountProject/sharemount-core/pkg/database"
	"github.com/ShareMountProject/sharemount-core/pkg/platforms"
	"github.com/ShareMountProject/sharemount-core/pkg/testing/mocks"
	testsqlmock "github.com/ShareMountProject/sharemount-core/pkg/testing/sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}

func setupTempUserDB(t *testing.T) *UserDB {
	t.Helper()

	pl := &mocks.StubPlatform{Dirs: platforms.Settings{DataDir: t.TempDir()}}

	userDB, err := OpenUserDB(context.Background(), pl)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = userDB.Close()
	})
	return userDB
}

func TestAddAndGetConnection(t *testing.T) {
	userDB := setupTempUserDB(t)

	conn, err := userDB.AddConnection("Team Docs", "smb://NAS.local/Docs/", "alice", true)
	require.NoError(t, err)
	assert.NotEmpty(t, conn.ID)
	assert.Equal(t, "nas.local/docs", conn.SharePath, "share path should be stored normalized")
	assert.Nil(t, conn.LastUsed)

	got, err := userDB.GetConnection(conn.ID)
	require.NoError(t, err)
	assert.Equal(t, conn.ID, got.ID)
	assert.Equal(t, "Team Docs", got.Label)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.AutoMount)
}

func TestAddConnectionRejectsDuplicateShare(t *testing.T) {
	userDB := setupTempUserDB(t)

	_, err := userDB.AddConnection("Docs", "nas.local/docs", "alice", true)
	require.NoError(t, err)

	// same share through a different spelling is still a duplicate
	_, err = userDB.AddConnection("Docs again", "smb://nas.local/docs/", "alice", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateShare)

	// a different user on the same share is allowed
	_, err = userDB.AddConnection("Bob's docs", "nas.local/docs", "bob", true)
	require.NoError(t, err)
}

func TestAddConnectionRejectsBadSharePath(t *testing.T) {
	userDB := setupTempUserDB(t)

	_, err := userDB.AddConnection("Broken", "just-a-host", "alice", true)
	require.Error(t, err)
}

func TestGetConnectionNotFound(t *testing.T) {
	userDB := setupTempUserDB(t)

	_, err := userDB.GetConnection("definitely-not-an-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestFindConnection(t *testing.T) {
	userDB := setupTempUserDB(t)

	created, err := userDB.AddConnection("Docs", "nas.local/docs", "alice", true)
	require.NoError(t, err)

	found, err := userDB.FindConnection("smb://NAS.local/docs", "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = userDB.FindConnection("nas.local/docs", "bob")
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestConnectionIdentityIgnoresEmbeddedUser(t *testing.T) {
	userDB := setupTempUserDB(t)

	// Stored with the user embedded in the path, looked up without it.
	created, err := userDB.AddConnection("Docs", "smb://alice@nas.local/docs", "alice", true)
	require.NoError(t, err)
	assert.Equal(t, "nas.local/docs", created.SharePath,
		"embedded user should be stripped before storage")

	found, err := userDB.FindConnection("nas.local/docs", "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	// And the other way round.
	found, err = userDB.FindConnection("smb://alice@NAS.local/docs/", "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	// The prefixed spelling names the same row, so it is a duplicate.
	_, err = userDB.AddConnection("Docs again", "nas.local/docs", "alice", false)
	assert.ErrorIs(t, err, ErrDuplicateShare)
}

func TestListAutoMountConnections(t *testing.T) {
	userDB := setupTempUserDB(t)

	_, err := userDB.AddConnection("Docs", "nas.local/docs", "alice", true)
	require.NoError(t, err)
	_, err = userDB.AddConnection("Scratch", "nas.local/scratch", "alice", false)
	require.NoError(t, err)

	all, err := userDB.ListConnections()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	auto, err := userDB.ListAutoMountConnections()
	require.NoError(t, err)
	require.Len(t, auto, 1)
	assert.Equal(t, "Docs", auto[0].Label)
}

func TestUpdateConnectionDiff(t *testing.T) {
	tests := []struct {
		name             string
		update           database.ConnectionUpdate
		wantChanged      []string
		wantNeedsRemount bool
	}{
		{
			name:        "no-op update reports nothing",
			update:      database.ConnectionUpdate{Label: strPtr("Docs")},
			wantChanged: nil,
		},
		{
			name:        "label only does not need remount",
			update:      database.ConnectionUpdate{Label: strPtr("Team Docs")},
			wantChanged: []string{"label"},
		},
		{
			name:        "auto-mount only does not need remount",
			update:      database.ConnectionUpdate{AutoMount: boolPtr(false)},
			wantChanged: []string{"autoMount"},
		},
		{
			name:             "share path change needs remount",
			update:           database.ConnectionUpdate{SharePath: strPtr("nas.local/archive")},
			wantChanged:      []string{"sharePath"},
			wantNeedsRemount: true,
		},
		{
			name:             "username change needs remount",
			update:           database.ConnectionUpdate{Username: strPtr("bob")},
			wantChanged:      []string{"username"},
			wantNeedsRemount: true,
		},
		{
			name: "combined update reports every field",
			update: database.ConnectionUpdate{
				Label:     strPtr("Renamed"),
				SharePath: strPtr("nas.local/archive"),
			},
			wantChanged:      []string{"label", "sharePath"},
			wantNeedsRemount: true,
		},
		{
			name:        "share path respelling is not a change",
			update:      database.ConnectionUpdate{SharePath: strPtr("smb://NAS.local/Docs/")},
			wantChanged: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userDB := setupTempUserDB(t)
			conn, err := userDB.AddConnection("Docs", "nas.local/docs", "alice", true)
			require.NoError(t, err)

			result, err := userDB.UpdateConnection(conn.ID, tt.update)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, result.ChangedFields)
			assert.Equal(t, tt.wantNeedsRemount, result.NeedsRemount)
		})
	}
}

func TestRemoveConnection(t *testing.T) {
	userDB := setupTempUserDB(t)

	conn, err := userDB.AddConnection("Docs", "nas.local/docs", "alice", true)
	require.NoError(t, err)

	require.NoError(t, userDB.RemoveConnection(conn.ID))
	assert.ErrorIs(t, userDB.RemoveConnection(conn.ID), ErrConnectionNotFound)

	_, err = userDB.GetConnection(conn.ID)
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestTouchConnection(t *testing.T) {
	userDB := setupTempUserDB(t)

	conn, err := userDB.AddConnection("Docs", "nas.local/docs", "alice", true)
	require.NoError(t, err)

	require.NoError(t, userDB.TouchConnection(conn.ID))

	got, err := userDB.GetConnection(conn.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsed)
}

func TestTouchConnectionQuery(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`UPDATE Connections SET LastUsed = \? WHERE ID = \?`).
		WithArgs(sqlmock.AnyArg(), "conn-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	userDB := &UserDB{sql: db, ctx: context.Background()}
	require.NoError(t, userDB.TouchConnection("conn-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
