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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvVarNames(t *testing.T) {
	t.Parallel()

	// The daemon hands these to the spawned process by name. Renaming
	// either one silently breaks the handoff.
	assert.Equal(t, "SHAREMOUNT_APP_PATH", AppEnv)
	assert.Equal(t, "SHAREMOUNT_CONFIG", CfgEnv)
}

func TestNewConfigEnvPathOverride(t *testing.T) {
	envDir := t.TempDir()
	envPath := filepath.Join(envDir, "custom.toml")
	err := os.WriteFile(envPath, []byte("config_schema = 1\ndebug_logging = true\n"), 0o600)
	require.NoError(t, err)

	t.Setenv(CfgEnv, envPath)

	configDir := t.TempDir()
	cfg, err := NewConfig(configDir, BaseDefaults)
	require.NoError(t, err)

	assert.True(t, cfg.DebugLogging())

	// The env path wins outright, so no default file should appear.
	_, err = os.Stat(filepath.Join(configDir, CfgFile))
	assert.True(t, os.IsNotExist(err))
}

func TestNewConfigWritesDefaults(t *testing.T) {
	t.Setenv(CfgEnv, "")

	configDir := t.TempDir()
	cfg, err := NewConfig(configDir, BaseDefaults)
	require.NoError(t, err)

	assert.False(t, cfg.DebugLogging())

	_, err = os.Stat(filepath.Join(configDir, CfgFile))
	require.NoError(t, err)
}
