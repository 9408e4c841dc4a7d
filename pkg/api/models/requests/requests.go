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

package requests

import (
	"encoding/json"

	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/database/userdb"
	"github.com/ShareMountProject/sharemount-core/pkg/keychain"
	"github.com/ShareMountProject/sharemount-core/pkg/platforms"
	"github.com/ShareMountProject/sharemount-core/pkg/service/mounter"
	"github.com/ShareMountProject/sharemount-core/pkg/service/netwatch"
	"github.com/ShareMountProject/sharemount-core/pkg/service/state"
	"github.com/ShareMountProject/sharemount-core/pkg/smb"
	"github.com/google/uuid"
)

// RequestEnv carries everything a method handler may touch. It is built
// once per request by the server.
type RequestEnv struct {
	Platform    platforms.Platform
	Config      *config.Instance
	State       *state.State
	Database    *userdb.UserDB
	Keychain    keychain.Store
	Backend     *smb.Backend
	Coordinator *mounter.Coordinator
	AutoMounter *mounter.AutoMounter
	Watcher     *netwatch.Watcher
	Params      json.RawMessage
	ID          uuid.UUID
	IsLocal     bool
}
