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

package state

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/api/notifications"
	"github.com/ShareMountProject/sharemount-core/pkg/helpers/syncutil"
	"github.com/ShareMountProject/sharemount-core/pkg/platforms"
	"github.com/ShareMountProject/sharemount-core/pkg/smb"
)

var ErrShareAlreadyMounted = errors.New("share path already has a tracked mount")

// MountedShare is one live mount tracked by the service. SharePath is
// stored normalized.
type MountedShare struct {
	MountedAt  time.Time
	Label      string
	MountPoint string
	SharePath  string
	Username   string

	// Unreachable marks a mount whose network is gone. The share stays
	// tracked; the health monitor decides whether it actually died.
	Unreachable bool
}

// State holds the runtime state of the Sharemount service.
//
// LOCKING RULES: The mu mutex protects all mutable fields. To prevent deadlocks:
//   - Never send to channels while holding the lock
//   - Never call external methods while holding the lock
//   - Pattern: lock → modify state → copy needed data → unlock → send notifications
//
// See AddMountedShare and RemoveMountedShare for examples.
type State struct {
	platform      platforms.Platform
	ctx           context.Context
	ctxCancelFunc context.CancelFunc
	mounted       map[string]MountedShare
	Notifications chan<- models.Notification
	mu            syncutil.RWMutex
	stopService   bool
}

func NewState(platform platforms.Platform) (state *State, notificationCh <-chan models.Notification) {
	// Buffered so state changes never block on a slow notification consumer
	ns := make(chan models.Notification, 100)
	ctx, ctxCancelFunc := context.WithCancel(context.Background())
	return &State{
		platform:      platform,
		mounted:       make(map[string]MountedShare),
		Notifications: ns,
		ctx:           ctx,
		ctxCancelFunc: ctxCancelFunc,
	}, ns
}

// AddMountedShare tracks a new live mount. At most one mount may exist per
// normalized share path; a second add for the same path fails regardless of
// label. Adding under an existing label replaces that entry.
func (s *State) AddMountedShare(share MountedShare) error {
	share.SharePath = smb.Normalize(share.SharePath)

	s.mu.Lock()

	for label, existing := range s.mounted {
		if label != share.Label && smb.SamePath(existing.SharePath, share.SharePath) {
			s.mu.Unlock()
			return ErrShareAlreadyMounted
		}
	}

	s.mounted[share.Label] = share

	// Prepare notification payload inside lock, send outside
	payload := models.MountedShareResponse{
		Label:      share.Label,
		MountPoint: share.MountPoint,
		SharePath:  share.SharePath,
		Username:   share.Username,
		MountedAt:  share.MountedAt,
	}

	s.mu.Unlock()

	notifications.MountAdded(s.Notifications, payload)
	return nil
}

// RemoveMountedShare stops tracking a mount by label. Removing an unknown
// label is a no-op and reports false.
func (s *State) RemoveMountedShare(label string) (MountedShare, bool) {
	s.mu.Lock()

	share, ok := s.mounted[label]
	if ok {
		delete(s.mounted, label)
	}

	s.mu.Unlock()

	if ok {
		notifications.MountRemoved(s.Notifications, label)
	}
	return share, ok
}

func (s *State) GetMountedShare(label string) (MountedShare, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	share, ok := s.mounted[label]
	return share, ok
}

// FindMountedByPath returns the tracked mount for a share path and
// username, if any. Matching ignores scheme, case and user prefixes the
// same way conflict detection does.
func (s *State) FindMountedByPath(sharePath, username string) (MountedShare, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, share := range s.mounted {
		if smb.SamePath(share.SharePath, sharePath) && share.Username == username {
			return share, true
		}
	}
	return MountedShare{}, false
}

// SetAllUnreachable flips the unreachable flag on every tracked mount and
// returns the labels that changed. Called by the network watcher on
// offline and online transitions; no unmounting happens here because
// filesystem operations under a dead network can block.
func (s *State) SetAllUnreachable(unreachable bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []string
	for label, share := range s.mounted {
		if share.Unreachable == unreachable {
			continue
		}
		share.Unreachable = unreachable
		s.mounted[label] = share
		changed = append(changed, label)
	}
	sort.Strings(changed)
	return changed
}

// ListMountedShares returns a stable snapshot of every tracked mount.
func (s *State) ListMountedShares() []MountedShare {
	s.mu.RLock()
	shares := make([]MountedShare, 0, len(s.mounted))
	for _, share := range s.mounted {
		shares = append(shares, share)
	}
	s.mu.RUnlock()

	sort.Slice(shares, func(i, j int) bool {
		return shares[i].Label < shares[j].Label
	})
	return shares
}

func (s *State) Platform() platforms.Platform {
	return s.platform
}

func (s *State) GetContext() context.Context {
	return s.ctx
}

func (s *State) StopService() {
	s.mu.Lock()
	s.stopService = true
	s.mu.Unlock()
	s.ctxCancelFunc()
}

func (s *State) ShouldStopService() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopService
}
