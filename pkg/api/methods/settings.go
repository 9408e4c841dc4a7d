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
	"github.com/rs/zerolog/log"
)

//nolint:gocritic // single-use parameter in API handler
func HandleSettings(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received settings request")

	return models.SettingsResponse{
		MountRoot:           env.Config.MountRoot(env.Platform.DefaultMountRoot()),
		AutoMount:           env.Config.AutoMountEnabled(),
		RememberCredentials: env.Config.RememberCredentials(),
		PollInterval:        int(env.Config.PollInterval().Seconds()),
		HealthInterval:      int(env.Config.HealthInterval().Seconds()),
		DebugLogging:        env.Config.DebugLogging(),
	}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleSettingsUpdate(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received settings update request")

	var params models.UpdateSettingsParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	if params.MountRoot != nil {
		log.Info().Str("mountRoot", *params.MountRoot).Msg("update")
		env.Config.SetMountRoot(*params.MountRoot)
	}

	if params.AutoMount != nil {
		log.Info().Bool("autoMount", *params.AutoMount).Msg("update")
		wasEnabled := env.Config.AutoMountEnabled()
		env.Config.SetAutoMountEnabled(*params.AutoMount)
		if *params.AutoMount && !wasEnabled && env.AutoMounter != nil {
			go env.AutoMounter.AutoMountConnections(env.State.GetContext(), "settings")
		}
	}

	if params.RememberCredentials != nil {
		log.Info().Bool("rememberCredentials", *params.RememberCredentials).Msg("update")
		env.Config.SetRememberCredentials(*params.RememberCredentials)
	}

	if params.DebugLogging != nil {
		log.Info().Bool("debugLogging", *params.DebugLogging).Msg("update")
		env.Config.SetDebugLogging(*params.DebugLogging)
	}

	if err := env.Config.Save(); err != nil {
		log.Error().Err(err).Msg("error saving settings")
		return nil, errors.New("error saving settings")
	}

	return NoContent{}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleSettingsReload(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received settings reload request")

	if err := env.Config.Load(); err != nil {
		log.Error().Err(err).Msg("error loading settings")
		return nil, errors.New("error loading settings")
	}

	return NoContent{}, nil
}
