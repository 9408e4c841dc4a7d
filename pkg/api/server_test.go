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

package api

import (
	"strings"
	"testing"

	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodMapCoversAllMethods(t *testing.T) {
	t.Parallel()

	wanted := []string{
		models.MethodMount,
		models.MethodUnmount,
		models.MethodUnmountAll,
		models.MethodMounts,
		models.MethodMountsCleanup,
		models.MethodConnections,
		models.MethodConnectionsNew,
		models.MethodConnectionsUpdate,
		models.MethodConnectionsDelete,
		models.MethodConnectionsRemount,
		models.MethodSettings,
		models.MethodSettingsUpdate,
		models.MethodSettingsReload,
		models.MethodNetworkStatus,
		models.MethodNetworkCheck,
		models.MethodNetworkDiscover,
		models.MethodAutoMount,
		models.MethodVersion,
	}

	require.Len(t, methodMap, len(wanted), "method registered but not listed here, or vice versa")
	for _, method := range wanted {
		handler, ok := methodMap[method]
		assert.True(t, ok, "method %s not registered", method)
		assert.NotNil(t, handler, "method %s has nil handler", method)
	}
}

func TestMethodNamesAreLowercase(t *testing.T) {
	t.Parallel()

	// handleRequest lowercases incoming method names before the map
	// lookup, so a mixed-case registration would be unreachable.
	for method := range methodMap {
		assert.Equal(t, strings.ToLower(method), method)
	}
}
