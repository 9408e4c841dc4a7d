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
	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/api/models/requests"
	"github.com/ShareMountProject/sharemount-core/pkg/api/validation"
	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/rs/zerolog/log"
)

//nolint:gocritic // single-use parameter in API handler
func HandleVersion(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received version request")
	return models.VersionResponse{
		Version:  config.AppVersion,
		Platform: env.Platform.ID(),
	}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleAutoMount(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received automount request")

	trigger := "manual"
	if len(env.Params) > 0 {
		var params models.AutoMountTriggerParams
		if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
			return nil, err
		}
		if params.Trigger != "" {
			trigger = params.Trigger
		}
	}

	result := env.AutoMounter.AutoMountConnections(env.State.GetContext(), trigger)
	if result == nil {
		// disabled, or coalesced into a sweep already in flight
		return NoContent{}, nil
	}
	return result, nil
}
