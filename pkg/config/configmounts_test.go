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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestAutoMountEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		autoMount *bool
		name      string
		want      bool
	}{
		{
			name:      "nil returns true (default enabled)",
			autoMount: nil,
			want:      true,
		},
		{
			name:      "true returns true",
			autoMount: boolPtr(true),
			want:      true,
		},
		{
			name:      "false returns false",
			autoMount: boolPtr(false),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inst := &Instance{
				vals: Values{
					Mounts: Mounts{
						AutoMount: tt.autoMount,
					},
				},
			}

			assert.Equal(t, tt.want, inst.AutoMountEnabled())
		})
	}
}

func TestMountRoot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mountRoot string
		fallback  string
		want      string
	}{
		{
			name:      "empty returns fallback",
			mountRoot: "",
			fallback:  "/Users/alice/Shares",
			want:      "/Users/alice/Shares",
		},
		{
			name:      "configured value wins",
			mountRoot: "/Users/alice/NetworkDrives",
			fallback:  "/Users/alice/Shares",
			want:      "/Users/alice/NetworkDrives",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inst := &Instance{
				vals: Values{
					Mounts: Mounts{
						MountRoot: tt.mountRoot,
					},
				},
			}

			assert.Equal(t, tt.want, inst.MountRoot(tt.fallback))
		})
	}
}

func TestMountTimeoutDefaults(t *testing.T) {
	t.Parallel()

	inst := &Instance{vals: Values{}}
	assert.Equal(t, DefaultMountTimeout, inst.MountTimeout())
	assert.Equal(t, DefaultUnmountTimeout, inst.UnmountTimeout())

	inst = &Instance{
		vals: Values{
			Mounts: Mounts{
				MountTimeout:   20,
				UnmountTimeout: 5,
			},
		},
	}
	assert.Equal(t, 20*time.Second, inst.MountTimeout())
	assert.Equal(t, 5*time.Second, inst.UnmountTimeout())
}
