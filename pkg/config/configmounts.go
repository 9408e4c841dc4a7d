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

import "time"

const (
	// DefaultMountTimeout bounds a single mount_smbfs invocation. SMB
	// negotiation against a half-dead host can sit for minutes otherwise.
	DefaultMountTimeout = 15 * time.Second

	// DefaultUnmountTimeout bounds a full unmount pass including the forced
	// fallback escalation.
	DefaultUnmountTimeout = 10 * time.Second
)

type Mounts struct {
	AutoMount           *bool  `toml:"auto_mount,omitempty"`
	RememberCredentials *bool  `toml:"remember_credentials,omitempty"`
	MountRoot           string `toml:"mount_root,omitempty"`
	MountTimeout        int    `toml:"mount_timeout,omitempty"`
	UnmountTimeout      int    `toml:"unmount_timeout,omitempty"`
}

// MountRoot returns the directory shares are mounted under. The fallback is
// the platform default, resolved by the caller so this package stays free of
// platform imports.
func (c *Instance) MountRoot(fallback string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Mounts.MountRoot == "" {
		return fallback
	}
	return c.vals.Mounts.MountRoot
}

func (c *Instance) SetMountRoot(root string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Mounts.MountRoot = root
}

// AutoMountEnabled reports whether saved connections flagged for auto-mount
// are mounted on startup and network reconnect. Defaults to enabled.
func (c *Instance) AutoMountEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Mounts.AutoMount == nil {
		return true
	}
	return *c.vals.Mounts.AutoMount
}

func (c *Instance) SetAutoMountEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Mounts.AutoMount = &enabled
}

// RememberCredentials reports whether passwords are stored in the system
// keychain on successful mounts. Defaults to enabled.
func (c *Instance) RememberCredentials() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Mounts.RememberCredentials == nil {
		return true
	}
	return *c.vals.Mounts.RememberCredentials
}

func (c *Instance) SetRememberCredentials(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Mounts.RememberCredentials = &enabled
}

func (c *Instance) MountTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Mounts.MountTimeout <= 0 {
		return DefaultMountTimeout
	}
	return time.Duration(c.vals.Mounts.MountTimeout) * time.Second
}

func (c *Instance) UnmountTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Mounts.UnmountTimeout <= 0 {
		return DefaultUnmountTimeout
	}
	return time.Duration(c.vals.Mounts.UnmountTimeout) * time.Second
}
