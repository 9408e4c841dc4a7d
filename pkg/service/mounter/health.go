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
	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/database/userdb"
	"github.com/ShareMountProject/sharemount-core/pkg/service/state"
	"github.com/ShareMountProject/sharemount-core/pkg/smb"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RetrySink receives connections whose mounts dropped so reconnection can
// be attempted with backoff. Satisfied by the network watcher.
type RetrySink interface {
	EnqueueRetry(connID, label string)
}

// HealthMonitor periodically reconciles tracked mounts against the OS
// mount table. A tracked share missing from the table was ejected behind
// the service's back, typically by a dropped network or a manual Finder
// eject, and is removed from state and queued for reconnection.
type HealthMonitor struct {
	st      *state.State
	cfg     *config.Instance
	db      *userdb.UserDB
	backend *smb.Backend
	retries RetrySink
	clock   clockwork.Clock
}

func NewHealthMonitor(
	st *state.State,
	cfg *config.Instance,
	db *userdb.UserDB,
	backend *smb.Backend,
	retries RetrySink,
	clock clockwork.Clock,
) *HealthMonitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HealthMonitor{
		st:      st,
		cfg:     cfg,
		db:      db,
		backend: backend,
		retries: retries,
		clock:   clock,
	}
}

// Start runs the validation loop until the state context is canceled.
func (h *HealthMonitor) Start() {
	go func() {
		ctx := h.st.GetContext()
		ticker := h.clock.NewTicker(h.cfg.HealthInterval())
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				h.Sweep(ctx)
			case <-ctx.Done():
				log.Debug().Msg("health monitor stopped")
				return
			}
		}
	}()
}

// Sweep validates every tracked mount once and returns the labels found
// disconnected. Exported so tests and the status API can force a check.
func (h *HealthMonitor) Sweep(ctx context.Context) []string {
	mounts, err := h.backend.DetectSystemMounts(ctx)
	if err != nil {
		// an unreadable mount table says nothing about the shares
		log.Warn().Err(err).Msg("skipping health sweep, mount table unavailable")
		return nil
	}
	mounted := make(map[string]bool, len(mounts))
	for _, m := range mounts {
		mounted[m.MountPoint] = true
	}

	strict := h.cfg.StrictValidation()

	var disconnected []state.MountedShare
	for _, share := range h.st.ListMountedShares() {
		if !mounted[share.MountPoint] {
			log.Warn().
				Str("label", share.Label).
				Str("mountPoint", share.MountPoint).
				Msg("tracked share vanished from mount table")
			disconnected = append(disconnected, share)
			continue
		}
		if strict && !h.backend.ProbeMountReadable(ctx, share.MountPoint) {
			log.Warn().
				Str("label", share.Label).
				Msg("tracked share present but unreadable")
			disconnected = append(disconnected, share)
		}
	}

	if len(disconnected) == 0 {
		return nil
	}

	labels := make([]string, 0, len(disconnected))
	for _, share := range disconnected {
		labels = append(labels, share.Label)
		h.st.RemoveMountedShare(share.Label)

		conn, err := h.db.FindConnection(share.SharePath, share.Username)
		if err != nil {
			// unsaved mounts cannot be retried, dropping them is all we can do
			log.Debug().
				Str("label", share.Label).
				Err(err).
				Msg("disconnected share has no saved connection")
			continue
		}
		if h.retries != nil {
			h.retries.EnqueueRetry(conn.ID, share.Label)
		}
	}

	notifications.SharesDisconnected(h.st.Notifications, models.SharesDisconnectedParams{
		Labels: labels,
	})
	return labels
}
