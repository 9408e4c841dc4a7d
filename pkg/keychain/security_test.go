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

package keychain

import (
	"context"
	"os/exec"
	"testing"

	"github.com/ShareMountProject/sharemount-core/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func notFoundErr() error {
	return &exec.ExitError{
		Stderr: []byte("security: SecKeychainSearchCopyNext: " +
			"The specified item could not be found in the keychain."),
	}
}

func TestGetTrimsTrailingNewline(t *testing.T) {
	t.Parallel()

	mockCmd := &mocks.MockCommandExecutor{}
	mockCmd.On("Output", mock.Anything, "security",
		[]string{"find-generic-password", "-s", "sharemount", "-a", "conn-1", "-w"}).
		Return([]byte("s3cret\n"), nil)

	store := NewSecurityStore(mockCmd)
	password, err := store.Get(context.Background(), "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", password)
}

func TestGetMissingCredential(t *testing.T) {
	t.Parallel()

	mockCmd := &mocks.MockCommandExecutor{}
	mockCmd.On("Output", mock.Anything, "security", mock.Anything).
		Return([]byte(nil), notFoundErr())

	store := NewSecurityStore(mockCmd)
	_, err := store.Get(context.Background(), "conn-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestSetUpdatesInPlace(t *testing.T) {
	t.Parallel()

	mockCmd := &mocks.MockCommandExecutor{}
	mockCmd.On("Output", mock.Anything, "security",
		[]string{"add-generic-password", "-U", "-s", "sharemount", "-a", "conn-1", "-w", "s3cret"}).
		Return([]byte(""), nil)

	store := NewSecurityStore(mockCmd)
	require.NoError(t, store.Set(context.Background(), "conn-1", "s3cret"))
	mockCmd.AssertExpectations(t)
}

func TestDeleteMissingCredentialIsNoError(t *testing.T) {
	t.Parallel()

	mockCmd := &mocks.MockCommandExecutor{}
	mockCmd.On("Output", mock.Anything, "security", mock.Anything).
		Return([]byte(nil), notFoundErr())

	store := NewSecurityStore(mockCmd)
	assert.NoError(t, store.Delete(context.Background(), "conn-1"))
}

func TestLegacyServiceName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Sharemount-nas.local/docs", LegacyServiceName("smb://NAS.local/Docs/"))
}

func TestGetWithFallbackMigratesLegacyEntry(t *testing.T) {
	t.Parallel()

	mockCmd := &mocks.MockCommandExecutor{}
	// primary lookup misses
	mockCmd.On("Output", mock.Anything, "security",
		[]string{"find-generic-password", "-s", "sharemount", "-a", "conn-1", "-w"}).
		Return([]byte(nil), notFoundErr())
	// legacy lookup hits
	mockCmd.On("Output", mock.Anything, "security",
		[]string{"find-generic-password", "-s", "Sharemount-nas.local/docs", "-w"}).
		Return([]byte("legacy-pass\n"), nil)
	// credential is re-stored under the connection ID
	mockCmd.On("Output", mock.Anything, "security",
		[]string{"add-generic-password", "-U", "-s", "sharemount", "-a", "conn-1", "-w", "legacy-pass"}).
		Return([]byte(""), nil)

	store := NewSecurityStore(mockCmd)
	password, err := GetWithFallback(context.Background(), store, "conn-1", "nas.local/docs")
	require.NoError(t, err)
	assert.Equal(t, "legacy-pass", password)
	mockCmd.AssertExpectations(t)
}

func TestGetWithFallbackBothMiss(t *testing.T) {
	t.Parallel()

	mockCmd := &mocks.MockCommandExecutor{}
	mockCmd.On("Output", mock.Anything, "security", mock.Anything).
		Return([]byte(nil), notFoundErr())

	store := NewSecurityStore(mockCmd)
	_, err := GetWithFallback(context.Background(), store, "conn-1", "nas.local/docs")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	// only the two lookups ran, nothing was re-stored
	assert.Len(t, mockCmd.Calls, 2)
}
