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

package methods

import (
	"errors"

	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/api/models/requests"
	"github.com/ShareMountProject/sharemount-core/pkg/api/validation"
	"github.com/ShareMountProject/sharemount-core/pkg/database"
	"github.com/ShareMountProject/sharemount-core/pkg/keychain"
	"github.com/ShareMountProject/sharemount-core/pkg/smb"
	"github.com/rs/zerolog/log"
)

func connectionResponse(conn *database.Connection) models.ConnectionResponse {
	resp := models.ConnectionResponse{
		ID:        conn.ID,
		Label:     conn.Label,
		SharePath: conn.SharePath,
		Username:  conn.Username,
		AutoMount: conn.AutoMount,
		CreatedAt: conn.CreatedAt,
	}
	if conn.LastUsed != nil {
		resp.LastUsed = *conn.LastUsed
	}
	return resp
}

//nolint:gocritic // single-use parameter in API handler
func HandleConnections(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received connections request")

	conns, err := env.Database.ListConnections()
	if err != nil {
		log.Error().Err(err).Msg("error listing connections")
		return nil, errors.New("error listing connections")
	}

	resp := make([]models.ConnectionResponse, 0, len(conns))
	for i := range conns {
		resp = append(resp, connectionResponse(&conns[i]))
	}
	return resp, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleNewConnection(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received new connection request")

	var params models.NewConnectionParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	conn, err := env.Database.AddConnection(
		params.Label, params.SharePath, params.Username, params.AutoMount)
	if err != nil {
		log.Warn().Err(err).Msg("error adding connection")
		return nil, err
	}

	if params.Password != "" {
		ctx := env.State.GetContext()
		if setErr := env.Keychain.Set(ctx, conn.ID, params.Password); setErr != nil {
			log.Warn().Err(setErr).Msg("failed to store credentials for new connection")
		}
	}

	return connectionResponse(conn), nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleUpdateConnection(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received update connection request")

	var params models.UpdateConnectionParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	// the pre-update label identifies any live mount of this connection
	before, err := env.Database.GetConnection(params.ID)
	if err != nil {
		return nil, err
	}

	result, err := env.Database.UpdateConnection(params.ID, database.ConnectionUpdate{
		Label:     params.Label,
		SharePath: params.SharePath,
		Username:  params.Username,
		AutoMount: params.AutoMount,
	})
	if err != nil {
		return nil, err
	}

	resp := models.UpdateConnectionResult{
		ChangedFields: result.ChangedFields,
		NeedsRemount:  result.NeedsRemount,
	}

	if result.NeedsRemount {
		if _, mounted := env.State.GetMountedShare(before.Label); mounted {
			go func() {
				ctx := env.State.GetContext()
				if remountErr := env.AutoMounter.RemountUpdatedConnection(
					ctx, params.ID, before.Label); remountErr != nil {
					log.Warn().Err(remountErr).Msg("remount after update failed")
				}
			}()
		}
	}

	return resp, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleDeleteConnection(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received delete connection request")

	var params models.DeleteConnectionParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	conn, err := env.Database.GetConnection(params.ID)
	if err != nil {
		return nil, err
	}

	ctx := env.State.GetContext()

	if share, mounted := env.State.FindMountedByPath(conn.SharePath, conn.Username); mounted {
		if unmountErr := env.Backend.Unmount(ctx, share.MountPoint); unmountErr != nil {
			log.Warn().Err(unmountErr).Msg("unmount during connection delete failed")
		} else {
			env.State.RemoveMountedShare(share.Label)
		}
	}

	if env.Watcher != nil {
		env.Watcher.DropRetry(conn.ID)
	}

	if delErr := env.Keychain.Delete(ctx, conn.ID); delErr != nil &&
		!errors.Is(delErr, keychain.ErrCredentialNotFound) {
		log.Warn().Err(delErr).Msg("failed to delete stored credentials")
	}

	if err := env.Database.RemoveConnection(params.ID); err != nil {
		return nil, err
	}
	return NoContent{}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleRemountConnection(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received remount connection request")

	var params models.RemountParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	conn, err := env.Database.GetConnection(params.ID)
	if err != nil {
		return nil, err
	}

	ctx := env.State.GetContext()
	if err := env.AutoMounter.RemountConnection(ctx, params.ID); err != nil {
		return models.MountResult{
			Label:   conn.Label,
			Message: smb.UserMessage(err),
		}, nil
	}

	if env.Watcher != nil {
		env.Watcher.DropRetry(conn.ID)
	}

	share, _ := env.State.GetMountedShare(conn.Label)
	return models.MountResult{
		Success:    true,
		Label:      conn.Label,
		MountPoint: share.MountPoint,
	}, nil
}
