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
	"context"
	"errors"
	"time"

	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/api/models/requests"
	"github.com/ShareMountProject/sharemount-core/pkg/api/validation"
	"github.com/ShareMountProject/sharemount-core/pkg/database/userdb"
	"github.com/ShareMountProject/sharemount-core/pkg/service/state"
	"github.com/ShareMountProject/sharemount-core/pkg/smb"
	"github.com/rs/zerolog/log"
)

// NoContent is returned by handlers that have nothing to report beyond
// success.
type NoContent struct{}

//nolint:gocritic // single-use parameter in API handler
func HandleMount(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received mount request")

	var params models.MountParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	sharePath := smb.Normalize(params.SharePath)
	if _, _, err := smb.SplitSharePath(sharePath); err != nil {
		return models.MountResult{Message: smb.UserMessage(err)}, nil
	}

	label := params.Label
	if label == "" {
		label = smb.MountDirName(sharePath)
	}

	ctx := env.State.GetContext()

	if existing, ok := env.State.FindMountedByPath(sharePath, params.Username); ok {
		return models.MountResult{
			Success:    true,
			Label:      existing.Label,
			MountPoint: existing.MountPoint,
			Message:    "already mounted",
		}, nil
	}

	outcome, err := env.Coordinator.CoordinateMount(ctx, sharePath, params.Username, params.Password)
	if err != nil {
		log.Warn().Str("sharePath", sharePath).Err(err).Msg("mount failed")
		return models.MountResult{Message: smb.UserMessage(err)}, nil
	}

	share := state.MountedShare{
		Label:      label,
		MountPoint: outcome.MountPoint,
		SharePath:  sharePath,
		Username:   params.Username,
		MountedAt:  time.Now(),
	}
	if addErr := env.State.AddMountedShare(share); addErr != nil {
		// raced another mount of the same share, the winner's entry stands
		log.Debug().Err(addErr).Msg("mount already tracked")
	}

	persistConnection(ctx, env, params, label, sharePath)

	return models.MountResult{
		Success:    true,
		Label:      label,
		MountPoint: outcome.MountPoint,
	}, nil
}

// persistConnection saves a successful manual mount as a connection when
// the user asked for it, and stores the password alongside. Persistence
// failures never fail the mount itself.
func persistConnection(
	ctx context.Context,
	env requests.RequestEnv,
	params models.MountParams,
	label, sharePath string,
) {
	save := env.Config.RememberCredentials()
	if params.SaveCredentials != nil {
		save = *params.SaveCredentials
	}
	autoMount := params.AutoMount != nil && *params.AutoMount

	if !save && params.AutoMount == nil {
		return
	}

	conn, err := env.Database.FindConnection(sharePath, params.Username)
	if errors.Is(err, userdb.ErrConnectionNotFound) {
		conn, err = env.Database.AddConnection(label, sharePath, params.Username, autoMount)
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to save connection after mount")
		return
	}

	if save && params.Password != "" {
		if setErr := env.Keychain.Set(ctx, conn.ID, params.Password); setErr != nil {
			log.Warn().Err(setErr).Msg("failed to store credentials")
		}
	}
	if touchErr := env.Database.TouchConnection(conn.ID); touchErr != nil {
		log.Warn().Err(touchErr).Msg("failed to update last used")
	}
	if env.Watcher != nil {
		env.Watcher.DropRetry(conn.ID)
	}
}

//nolint:gocritic // single-use parameter in API handler
func HandleUnmount(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received unmount request")

	var params models.UnmountParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	return unmountShare(env, params.Label), nil
}

func unmountShare(env requests.RequestEnv, label string) models.MountResult {
	share, ok := env.State.GetMountedShare(label)
	if !ok {
		return models.MountResult{Label: label, Message: "not mounted"}
	}

	ctx := env.State.GetContext()
	if err := env.Backend.Unmount(ctx, share.MountPoint); err != nil {
		log.Warn().Str("label", label).Err(err).Msg("unmount failed")
		return models.MountResult{Label: label, Message: smb.UserMessage(err)}
	}

	env.State.RemoveMountedShare(label)
	dropRetryForShare(env, share)

	return models.MountResult{
		Success:    true,
		Label:      label,
		MountPoint: share.MountPoint,
	}
}

// dropRetryForShare cancels pending reconnection attempts after a
// deliberate unmount.
func dropRetryForShare(env requests.RequestEnv, share state.MountedShare) {
	if env.Watcher == nil {
		return
	}
	conn, err := env.Database.FindConnection(share.SharePath, share.Username)
	if err != nil {
		return
	}
	env.Watcher.DropRetry(conn.ID)
}

//nolint:gocritic // single-use parameter in API handler
func HandleUnmountAll(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received unmount all request")

	results := make([]models.MountResult, 0)
	for _, share := range env.State.ListMountedShares() {
		results = append(results, unmountShare(env, share.Label))
	}
	return results, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleMounts(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received mounts request")

	shares := env.State.ListMountedShares()
	resp := make([]models.MountedShareResponse, 0, len(shares))
	for _, share := range shares {
		resp = append(resp, models.MountedShareResponse{
			Label:       share.Label,
			MountPoint:  share.MountPoint,
			SharePath:   share.SharePath,
			Username:    share.Username,
			MountedAt:   share.MountedAt,
			Unreachable: share.Unreachable,
		})
	}
	return resp, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleMountsCleanup(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received mounts cleanup request")
	return env.AutoMounter.CleanupAllStaleMounts(env.State.GetContext()), nil
}
