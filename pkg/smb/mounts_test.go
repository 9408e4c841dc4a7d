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

package smb

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const mixedMountTable = `/dev/disk3s1s1 on / (apfs, sealed, local, read-only, journaled)
devfs on /dev (devfs, local, nobrowse)
//alice@nas.local/docs on /Users/alice/Shares/docs (smbfs, nodev, nosuid, mounted by alice)
//nas.local/media on /Volumes/media (smbfs, nodev, nosuid, mounted by alice)
//bob@backup.local/archive on /private/tmp/archive (cifs, nodev, nosuid)
map auto_home on /System/Volumes/Data/home (autofs, automounted, nobrowse)
`

func TestDetectSystemMounts(t *testing.T) {
	t.Parallel()

	b, mockCmd, _ := newTestBackend(t)

	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(mixedMountTable), nil).Once()

	mounts, err := b.DetectSystemMounts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []SystemMount{
		{ServerPath: "alice@nas.local/docs", MountPoint: "/Users/alice/Shares/docs"},
		{ServerPath: "nas.local/media", MountPoint: "/Volumes/media"},
		{ServerPath: "bob@backup.local/archive", MountPoint: "/private/tmp/archive"},
	}, mounts)
}

func TestDetectConflict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sharePath string
		wantPoint string
	}{
		{
			name:      "user prefix in table ignored",
			sharePath: "smb://nas.local/docs",
			wantPoint: "/Users/alice/Shares/docs",
		},
		{
			name:      "different user on query side",
			sharePath: "carol@backup.local/archive",
			wantPoint: "/private/tmp/archive",
		},
		{
			name:      "no conflict",
			sharePath: "nas.local/photos",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, mockCmd, _ := newTestBackend(t)
			mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
				Return([]byte(mixedMountTable), nil).Once()

			conflict, err := b.DetectConflict(context.Background(), tt.sharePath)
			require.NoError(t, err)

			if tt.wantPoint == "" {
				assert.Nil(t, conflict)
				return
			}
			require.NotNil(t, conflict)
			assert.Equal(t, tt.wantPoint, conflict.MountPoint)
		})
	}
}

func TestCleanupStaleMountsSweep(t *testing.T) {
	t.Parallel()

	b, mockCmd, _ := newTestBackend(t)

	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(mixedMountTable), nil)
	mockCmd.On("Run", mock.Anything, "umount", []string{"/Users/alice/Shares/docs"}).
		Return(nil).Once()

	result := b.CleanupStaleMounts(context.Background(), "")

	// only the mount under the app's mount root is swept
	assert.Equal(t, []string{"/Users/alice/Shares/docs"}, result.Cleaned)
	assert.Empty(t, result.Errors)
	mockCmd.AssertNotCalled(t, "Run", mock.Anything, "diskutil", mock.Anything)
}

func TestCleanupStaleMountsTargeted(t *testing.T) {
	t.Parallel()

	b, mockCmd, _ := newTestBackend(t)

	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(mixedMountTable), nil)
	mockCmd.On("Run", mock.Anything, "diskutil", []string{"eject", "/Volumes/media"}).
		Return(nil).Once()

	result := b.CleanupStaleMounts(context.Background(), "smb://nas.local/media")

	assert.Equal(t, []string{"/Volumes/media"}, result.Cleaned)
	assert.Empty(t, result.Errors)
	// the unrelated mounts are left alone
	mockCmd.AssertNotCalled(t, "Run", mock.Anything, "umount", mock.Anything)
	mockCmd.AssertExpectations(t)
}

func TestCleanupStaleMountsAccumulatesErrors(t *testing.T) {
	t.Parallel()

	b, mockCmd, _ := newTestBackend(t)

	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(mixedMountTable), nil)
	mockCmd.On("Run", mock.Anything, "diskutil", []string{"eject", "/Volumes/media"}).
		Return(assert.AnError)

	result := b.CleanupStaleMounts(context.Background(), "nas.local/media")

	assert.Empty(t, result.Cleaned)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "/Volumes/media")
}

func TestCleanupOrphanedMountDirs(t *testing.T) {
	t.Parallel()

	b, mockCmd, fs := newTestBackend(t)

	require.NoError(t, fs.MkdirAll(testMountRoot+"/docs", 0o750))
	require.NoError(t, fs.MkdirAll(testMountRoot+"/orphan", 0o750))
	require.NoError(t, fs.MkdirAll(testMountRoot+"/busy", 0o750))
	require.NoError(t, afero.WriteFile(fs, testMountRoot+"/busy/leftover.txt", []byte("x"), 0o600))

	mockCmd.On("Output", mock.Anything, "mount", []string(nil)).
		Return([]byte(mixedMountTable), nil).Once()

	cleaned := b.CleanupOrphanedMountDirs(context.Background())

	assert.Equal(t, []string{testMountRoot + "/orphan"}, cleaned)

	// docs is mounted, busy has contents: both survive
	for _, dir := range []string{testMountRoot + "/docs", testMountRoot + "/busy"} {
		exists, err := afero.DirExists(fs, dir)
		require.NoError(t, err)
		assert.True(t, exists, dir)
	}

	gone, err := afero.DirExists(fs, testMountRoot+"/orphan")
	require.NoError(t, err)
	assert.False(t, gone)
}

func TestCleanupOrphanedMountDirsMissingRoot(t *testing.T) {
	t.Parallel()

	b, mockCmd, _ := newTestBackend(t)

	assert.Nil(t, b.CleanupOrphanedMountDirs(context.Background()))
	mockCmd.AssertNotCalled(t, "Output", mock.Anything, mock.Anything, mock.Anything)
}
