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

package helpers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/platforms"
)

// HasUserDir checks for a "user" directory next to the binary and returns
// its path if it exists. It takes priority over the platform directories,
// which allows running a fully portable install for development.
func HasUserDir() (string, bool) {
	exeDir := ""
	env := os.Getenv(config.AppEnv)

	if env != "" {
		exeDir = filepath.Dir(env)
	} else {
		exe, err := os.Executable()
		if err != nil {
			return "", false
		}
		exeDir = filepath.Dir(exe)
	}

	userDir := filepath.Join(exeDir, "user")
	info, err := os.Stat(userDir)
	if err != nil || !info.IsDir() {
		return "", false
	}

	return userDir, true
}

// EnsureDirectories creates the platform config and data directories if
// they do not already exist.
func EnsureDirectories(pl platforms.Platform) error {
	for _, dir := range []string{ConfigDir(pl), DataDir(pl)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ConfigDir returns the path of the directory containing the config file.
func ConfigDir(pl platforms.Platform) string {
	if userDir, ok := HasUserDir(); ok {
		return userDir
	}
	return pl.Settings().ConfigDir
}

// DataDir returns the path of the directory used for storing service data
// such as the connections database.
func DataDir(pl platforms.Platform) string {
	if userDir, ok := HasUserDir(); ok {
		return userDir
	}
	return pl.Settings().DataDir
}
