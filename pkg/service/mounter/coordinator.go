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

package mounter

import (
	"context"

	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/api/notifications"
	"github.com/ShareMountProject/sharemount-core/pkg/helpers/syncutil"
	"github.com/ShareMountProject/sharemount-core/pkg/service/state"
	"github.com/ShareMountProject/sharemount-core/pkg/smb"
	"github.com/rs/zerolog/log"
)

// MountOutcome is the result of a coordinated mount.
type MountOutcome struct {
	MountPoint        string
	ConflictsResolved int
}

type mountCall struct {
	done    chan struct{}
	outcome MountOutcome
	err     error
}

// Coordinator is the single choke point for mounting. It guarantees at
// most one in-flight mount per normalized share path: a second caller for
// a path that is already mounting joins the running call and receives its
// result instead of starting a duplicate mount.
type Coordinator struct {
	st       *state.State
	backend  *smb.Backend
	precheck func(ctx context.Context, server string) smb.Connectivity
	inFlight map[string]*mountCall
	mu       syncutil.Mutex
}

func NewCoordinator(st *state.State, backend *smb.Backend) *Coordinator {
	return &Coordinator{
		st:       st,
		backend:  backend,
		precheck: backend.QuickConnectivityCheck,
		inFlight: make(map[string]*mountCall),
	}
}

// CoordinateMount mounts a share, resolving any conflicting system mount
// first. Per share path the state machine is Idle -> Mounting -> Idle; the
// in-flight marker is released on every exit path.
func (c *Coordinator) CoordinateMount(
	ctx context.Context,
	sharePath, username, password string,
) (MountOutcome, error) {
	key := smb.StripUserPrefix(smb.Normalize(sharePath))

	c.mu.Lock()
	if existing, ok := c.inFlight[key]; ok {
		c.mu.Unlock()
		log.Debug().Str("share", key).Msg("joining in-flight mount")
		select {
		case <-existing.done:
			return existing.outcome, existing.err
		case <-ctx.Done():
			return MountOutcome{}, ctx.Err() //nolint:wrapcheck // caller context
		}
	}
	call := &mountCall{done: make(chan struct{})}
	c.inFlight[key] = call
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, key)
		c.mu.Unlock()
		close(call.done)
	}()

	call.outcome, call.err = c.resolveAndMount(ctx, sharePath, username, password)
	return call.outcome, call.err
}

// resolveAndMount clears a conflicting foreign mount before delegating to
// the backend. Cleanup failures are logged and the mount proceeds anyway;
// the user's mount must not block indefinitely on cleanup.
func (c *Coordinator) resolveAndMount(
	ctx context.Context,
	sharePath, username, password string,
) (MountOutcome, error) {
	outcome := MountOutcome{}

	// advisory only: mount_smbfs can resolve NetBIOS names the probes
	// cannot, so an unreachable server warns but never refuses the mount
	if server, _, err := smb.SplitSharePath(sharePath); err == nil {
		if conn := c.precheck(ctx, server); !conn.Accessible {
			log.Warn().
				Str("server", server).
				Msg("server not answering probes, attempting mount anyway")
		}
	}

	conflict, err := c.backend.DetectConflict(ctx, sharePath)
	if err != nil {
		log.Warn().Err(err).Msg("conflict detection failed, attempting mount anyway")
	}
	if conflict != nil {
		log.Info().
			Str("serverPath", conflict.ServerPath).
			Str("mountPoint", conflict.MountPoint).
			Msg("resolving conflicting system mount")

		result := c.backend.CleanupStaleMounts(ctx, sharePath)
		outcome.ConflictsResolved = len(result.Cleaned)
		if len(result.Errors) > 0 {
			log.Warn().
				Strs("errors", result.Errors).
				Msg("conflict cleanup incomplete, attempting mount anyway")
		}
		if outcome.ConflictsResolved > 0 {
			notifications.ConflictsResolved(c.st.Notifications, models.ConflictsResolvedParams{
				SharePath: smb.Normalize(sharePath),
				Count:     outcome.ConflictsResolved,
			})
		}
	}

	mountPoint, err := c.backend.Mount(ctx, sharePath, username, password)
	if err != nil {
		return outcome, err
	}
	outcome.MountPoint = mountPoint
	return outcome, nil
}
