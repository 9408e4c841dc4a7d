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

// Package database holds the record types shared between the storage
// implementation and its callers, plus the goose migration runner.
package database

import "time"

// Connection is a saved share connection. Passwords are never stored on the
// record; the keychain holds them keyed by ID.
type Connection struct {
	CreatedAt   time.Time
	LastUsed    *time.Time
	ID          string
	Label       string
	SharePath   string
	Username    string
	AutoMount   bool
}

// ConnectionUpdate is a partial update. Nil fields are left untouched.
type ConnectionUpdate struct {
	Label     *string
	SharePath *string
	Username  *string
	AutoMount *bool
}

// UpdateResult reports exactly which fields an update changed.
// NeedsRemount is set when the change invalidates a live mount, which is
// any change to the share path or the username.
type UpdateResult struct {
	ChangedFields []string
	NeedsRemount  bool
}
