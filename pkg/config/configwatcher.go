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
	DefaultPollInterval     = 5 * time.Second
	DefaultHealthInterval   = 30 * time.Second
	DefaultRetryBaseDelay   = 5 * time.Second
	DefaultRetryMaxAttempts = 5
)

// DefaultProbeTargets are dialed to confirm upstream reachability. Any
// single success counts, so one provider being down never reads as offline.
var DefaultProbeTargets = []string{
	"1.1.1.1:53",
	"8.8.8.8:53",
	"9.9.9.9:53",
}

type Watcher struct {
	StrictValidation *bool    `toml:"strict_validation,omitempty"`
	ProbeTargets     []string `toml:"probe_targets,omitempty,multiline"`
	PollInterval     int      `toml:"poll_interval,omitempty"`
	HealthInterval   int      `toml:"health_interval,omitempty"`
	RetryBaseDelay   int      `toml:"retry_base_delay,omitempty"`
	RetryMaxAttempts int      `toml:"retry_max_attempts,omitempty"`
}

// PollInterval returns how often the network watcher recomputes its status
// snapshot.
func (c *Instance) PollInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Watcher.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.vals.Watcher.PollInterval) * time.Second
}

// HealthInterval returns how often tracked mounts are validated against the
// OS mount table.
func (c *Instance) HealthInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Watcher.HealthInterval <= 0 {
		return DefaultHealthInterval
	}
	return time.Duration(c.vals.Watcher.HealthInterval) * time.Second
}

// RetryBaseDelay is the first reconnect backoff step. Subsequent attempts
// double it.
func (c *Instance) RetryBaseDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Watcher.RetryBaseDelay <= 0 {
		return DefaultRetryBaseDelay
	}
	return time.Duration(c.vals.Watcher.RetryBaseDelay) * time.Second
}

// RetryMaxAttempts is the bound on reconnect attempts per connection before
// the entry is dropped from the retry queue.
func (c *Instance) RetryMaxAttempts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Watcher.RetryMaxAttempts <= 0 {
		return DefaultRetryMaxAttempts
	}
	return c.vals.Watcher.RetryMaxAttempts
}

// StrictValidation reports whether health checks also perform a bounded
// directory read on each mount point instead of only consulting the mount
// table. Defaults to disabled.
func (c *Instance) StrictValidation() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Watcher.StrictValidation == nil {
		return false
	}
	return *c.vals.Watcher.StrictValidation
}

func (c *Instance) ProbeTargets() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.vals.Watcher.ProbeTargets) == 0 {
		return DefaultProbeTargets
	}
	return c.vals.Watcher.ProbeTargets
}
