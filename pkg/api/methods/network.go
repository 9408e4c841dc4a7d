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
	"fmt"

	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/api/models/requests"
	"github.com/ShareMountProject/sharemount-core/pkg/api/validation"
	"github.com/rs/zerolog/log"
)

//nolint:gocritic // single-use parameter in API handler
func HandleNetworkStatus(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received network status request")

	status := env.Watcher.CurrentStatus()
	return models.NetworkStatusResponse{
		IsOnline:     status.IsOnline,
		HasInternet:  status.HasInternet,
		NetworkID:    status.NetworkID,
		VPNConnected: status.VPNConnected,
		VPNName:      status.VPNName,
		LastChecked:  status.LastChecked,
	}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleNetworkCheck(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received network check request")

	var params models.NetworkCheckParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	conn := env.Backend.QuickConnectivityCheck(env.State.GetContext(), params.Server)
	return models.NetworkCheckResponse{
		Server:     params.Server,
		Accessible: conn.Accessible,
		Method:     conn.Method,
	}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleNetworkDiscover(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received network discover request")

	servers, err := env.Backend.DiscoverServers(env.State.GetContext())
	if err != nil {
		return nil, fmt.Errorf("error discovering servers: %w", err)
	}

	resp := make([]models.DiscoveredServerResponse, 0, len(servers))
	for _, server := range servers {
		resp = append(resp, models.DiscoveredServerResponse{
			Name: server.Name,
			Host: server.Host,
			Addr: server.Addr,
		})
	}
	return resp, nil
}
