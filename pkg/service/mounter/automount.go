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
	"errors"
	"fmt"
	"time"

	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/api/notifications"
	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/database"
	"github.com/ShareMountProject/sharemount-core/pkg/database/userdb"
	"github.com/ShareMountProject/sharemount-core/pkg/helpers/syncutil"
	"github.com/ShareMountProject/sharemount-core/pkg/keychain"
	"github.com/ShareMountProject/sharemount-core/pkg/service/state"
	"github.com/ShareMountProject/sharemount-core/pkg/smb"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// autoMountConcurrency bounds how many shares mount at once during a
// sweep. Each mount shells out and can take the full mount timeout on a
// dead server, so an unbounded sweep could hold many processes open.
const autoMountConcurrency = 3

// AutoMounter mounts all eligible saved connections and aggregates the
// outcome. Only one sweep runs at a time; triggers arriving while a sweep
// is in flight are coalesced into a single deferred re-run carrying the
// most recent trigger.
type AutoMounter struct {
	st      *state.State
	cfg     *config.Instance
	db      *userdb.UserDB
	keys    keychain.Store
	coord   *Coordinator
	backend *smb.Backend
	mu      syncutil.Mutex
	pending string
	running bool
}

func NewAutoMounter(
	st *state.State,
	cfg *config.Instance,
	db *userdb.UserDB,
	keys keychain.Store,
	coord *Coordinator,
	backend *smb.Backend,
) *AutoMounter {
	return &AutoMounter{
		st:      st,
		cfg:     cfg,
		db:      db,
		keys:    keys,
		coord:   coord,
		backend: backend,
	}
}

// AutoMountConnections runs a sweep over every saved connection with
// auto-mount enabled. A sweep arriving while one runs is queued, never
// stacked: only the latest queued trigger is replayed after the in-flight
// sweep finishes. Returns nil when the sweep was queued instead of run.
func (a *AutoMounter) AutoMountConnections(ctx context.Context, trigger string) *models.AutoMountCompletedParams {
	if !a.cfg.AutoMountEnabled() {
		log.Debug().Str("trigger", trigger).Msg("auto-mount disabled, skipping sweep")
		return nil
	}

	a.mu.Lock()
	if a.running {
		a.pending = trigger
		a.mu.Unlock()
		log.Info().Str("trigger", trigger).Msg("auto-mount sweep already running, queued")
		return nil
	}
	a.running = true
	a.mu.Unlock()

	defer a.finishSweep(ctx)

	return a.sweep(ctx, trigger)
}

// finishSweep releases the run flag and replays at most one queued trigger.
func (a *AutoMounter) finishSweep(ctx context.Context) {
	a.mu.Lock()
	a.running = false
	pending := a.pending
	a.pending = ""
	a.mu.Unlock()

	if pending != "" {
		log.Info().Str("trigger", pending).Msg("replaying queued auto-mount trigger")
		go a.AutoMountConnections(ctx, pending)
	}
}

func (a *AutoMounter) sweep(ctx context.Context, trigger string) *models.AutoMountCompletedParams {
	conns, err := a.db.ListAutoMountConnections()
	if err != nil {
		log.Error().Err(err).Msg("failed to list auto-mount connections")
		return nil
	}

	log.Info().
		Str("trigger", trigger).
		Int("connections", len(conns)).
		Msg("starting auto-mount sweep")

	results := make([]models.AutoMountResult, len(conns))
	conflicts := make([]int, len(conns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(autoMountConcurrency)
	for i := range conns {
		g.Go(func() error {
			results[i], conflicts[i] = a.mountOne(gctx, &conns[i])
			// one bad share never aborts the others
			return nil
		})
	}
	_ = g.Wait()

	summary := models.AutoMountSummary{}
	for i, res := range results {
		if res.Skipped {
			continue
		}
		summary.TotalAttempted++
		if res.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
		if conflicts[i] > 0 {
			summary.ConflictsResolved += conflicts[i]
			summary.ConnectionsWithConflicts = append(summary.ConnectionsWithConflicts, res.Label)
		}
	}

	params := &models.AutoMountCompletedParams{
		Trigger: trigger,
		Results: results,
		Summary: summary,
	}

	log.Info().
		Str("trigger", trigger).
		Int("attempted", summary.TotalAttempted).
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Msg("auto-mount sweep finished")

	notifications.AutoMountCompleted(a.st.Notifications, *params)
	return params
}

func (a *AutoMounter) mountOne(ctx context.Context, conn *database.Connection) (models.AutoMountResult, int) {
	result := models.AutoMountResult{Label: conn.Label}

	if _, mounted := a.st.FindMountedByPath(conn.SharePath, conn.Username); mounted {
		result.Skipped = true
		result.Success = true
		return result, 0
	}

	password, err := keychain.GetWithFallback(ctx, a.keys, conn.ID, conn.SharePath)
	if err != nil {
		if errors.Is(err, keychain.ErrCredentialNotFound) {
			result.Message = "credentials missing"
		} else {
			result.Message = fmt.Sprintf("credential lookup failed: %v", err)
		}
		log.Warn().Str("label", conn.Label).Msg(result.Message)
		return result, 0
	}

	outcome, err := a.coord.CoordinateMount(ctx, conn.SharePath, conn.Username, password)
	if err != nil {
		result.Message = smb.UserMessage(err)
		log.Warn().Str("label", conn.Label).Err(err).Msg("auto-mount failed")
		return result, outcome.ConflictsResolved
	}

	share := state.MountedShare{
		Label:      conn.Label,
		MountPoint: outcome.MountPoint,
		SharePath:  conn.SharePath,
		Username:   conn.Username,
		MountedAt:  time.Now(),
	}
	if addErr := a.st.AddMountedShare(share); addErr != nil {
		// lost a race against another mount of the same path
		result.Skipped = true
		result.Success = true
		return result, outcome.ConflictsResolved
	}

	if touchErr := a.db.TouchConnection(conn.ID); touchErr != nil {
		log.Warn().Err(touchErr).Str("label", conn.Label).Msg("failed to update last used")
	}

	result.Success = true
	return result, outcome.ConflictsResolved
}

// CleanupAllStaleMounts is the system-wide sweep run at startup and after
// wake, before auto-mount proceeds, so stale conflicts don't poison the
// sweep. It also removes empty leftover mount point directories.
func (a *AutoMounter) CleanupAllStaleMounts(ctx context.Context) models.CleanupResultResponse {
	result := a.backend.CleanupStaleMounts(ctx, "")
	dirs := a.backend.CleanupOrphanedMountDirs(ctx)

	if len(dirs) > 0 {
		log.Info().Strs("dirs", dirs).Msg("removed orphaned mount directories")
	}

	return models.CleanupResultResponse{
		TotalCleaned:  len(result.Cleaned),
		CleanedMounts: result.Cleaned,
		Errors:        result.Errors,
	}
}

// RemountConnection tears down any live mount for a saved connection and
// mounts it again.
func (a *AutoMounter) RemountConnection(ctx context.Context, id string) error {
	conn, err := a.db.GetConnection(id)
	if err != nil {
		return err
	}
	return a.remount(ctx, conn, "")
}

// RemountUpdatedConnection is RemountConnection for a connection whose
// critical fields just changed: the old mount is tracked under the old
// label and possibly an old share path, so it is matched by label.
func (a *AutoMounter) RemountUpdatedConnection(ctx context.Context, id, oldLabel string) error {
	conn, err := a.db.GetConnection(id)
	if err != nil {
		return err
	}
	return a.remount(ctx, conn, oldLabel)
}

func (a *AutoMounter) remount(ctx context.Context, conn *database.Connection, oldLabel string) error {
	old, tracked := a.st.GetMountedShare(oldLabel)
	if !tracked {
		old, tracked = a.st.FindMountedByPath(conn.SharePath, conn.Username)
	}
	if tracked {
		if err := a.backend.Unmount(ctx, old.MountPoint); err != nil {
			log.Warn().Err(err).Str("label", old.Label).Msg("unmount before remount failed")
		}
		a.st.RemoveMountedShare(old.Label)
	}

	password, err := keychain.GetWithFallback(ctx, a.keys, conn.ID, conn.SharePath)
	if err != nil {
		return fmt.Errorf("remount %s: %w", conn.Label, err)
	}

	outcome, err := a.coord.CoordinateMount(ctx, conn.SharePath, conn.Username, password)
	if err != nil {
		return err
	}

	if err := a.st.AddMountedShare(state.MountedShare{
		Label:      conn.Label,
		MountPoint: outcome.MountPoint,
		SharePath:  conn.SharePath,
		Username:   conn.Username,
		MountedAt:  time.Now(),
	}); err != nil {
		return err
	}

	if touchErr := a.db.TouchConnection(conn.ID); touchErr != nil {
		log.Warn().Err(touchErr).Str("label", conn.Label).Msg("failed to update last used")
	}
	return nil
}
