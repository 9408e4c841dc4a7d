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

package mocks

import (
	"github.com/ShareMountProject/sharemount-core/pkg/platforms"
)

// StubPlatform is a fixed-value Platform implementation for tests. The
// platform interface carries no behavior worth asserting on, so a plain
// struct beats a testify mock here.
type StubPlatform struct {
	PlatformID string
	Dirs       platforms.Settings
	MountRoot  string
}

func (s *StubPlatform) ID() string {
	if s.PlatformID == "" {
		return platforms.PlatformIDMac
	}
	return s.PlatformID
}

func (s *StubPlatform) Settings() platforms.Settings {
	return s.Dirs
}

func (s *StubPlatform) DefaultMountRoot() string {
	if s.MountRoot == "" {
		return "/tmp/shares"
	}
	return s.MountRoot
}
