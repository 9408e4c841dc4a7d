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

// Package keychain stores share passwords in the OS secret store. Records
// are keyed by connection ID; a legacy lookup keyed by a service name
// derived from the share path is kept for entries written by old versions.
package keychain

import (
	"context"
	"errors"
)

var ErrCredentialNotFound = errors.New("credential not found")

// Store reads and writes passwords for saved connections. Implementations
// must treat a missing credential as ErrCredentialNotFound, not a failure.
type Store interface {
	// Get returns the password stored for a connection ID.
	Get(ctx context.Context, id string) (string, error)

	// GetLegacy returns the password stored under the service name derived
	// from a share path, the scheme used before connections had IDs.
	GetLegacy(ctx context.Context, sharePath string) (string, error)

	// Set stores or replaces the password for a connection ID.
	Set(ctx context.Context, id, password string) error

	// Delete removes the stored password for a connection ID. Deleting a
	// credential that does not exist is not an error.
	Delete(ctx context.Context, id string) error
}
