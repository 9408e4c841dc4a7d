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

// Package platforms defines the host platform abstraction. Mounting itself
// is macOS-only for now, but everything that touches the OS outside the
// command executor lives behind this interface so the service can be wired
// up with a stub in tests.
package platforms

const (
	PlatformIDMac = "mac"
)

// Settings are static platform directories resolved at startup.
type Settings struct {
	DataDir   string
	ConfigDir string
	TempDir   string
}

type Platform interface {
	// ID returns the unique ID of this platform.
	ID() string

	// Settings returns all platform-specific settings.
	Settings() Settings

	// DefaultMountRoot returns the directory shares are mounted under when
	// the user has not configured one.
	DefaultMountRoot() string
}
