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

// Package netwatch polls network state, derives transition events from
// successive snapshots and drives reconnection: auto-mount triggers on
// recovery, a bounded retry queue for dropped shares, and a stale-mount
// cleanup after a detected wake from sleep.
package netwatch

import (
	"context"
	"time"

	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/api/notifications"
	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/helpers/syncutil"
	"github.com/ShareMountProject/sharemount-core/pkg/service/state"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// wakeGapFactor scales the poll interval into the wall-clock gap treated
// as a wake from sleep. Ticks don't fire while the machine sleeps, so a
// gap several intervals wide cannot be scheduler jitter.
const wakeGapFactor = 3

// Hooks are the actions the watcher drives. They are injected by the
// service wiring so this package stays free of the mount machinery.
type Hooks struct {
	// TriggerAutoMount requests an auto-mount sweep tagged with a trigger.
	TriggerAutoMount func(ctx context.Context, trigger string)

	// CleanupStaleMounts runs the system-wide stale mount sweep.
	CleanupStaleMounts func(ctx context.Context)

	// RemountConnection re-establishes a single saved connection.
	RemountConnection func(ctx context.Context, id string) error
}

type Watcher struct {
	st       *state.State
	cfg      *config.Instance
	clock    clockwork.Clock
	status   StatusFunc
	hooks    Hooks
	retries  map[string]*retryEntry
	prev     *Status
	lastTick time.Time
	mu       syncutil.Mutex
}

func NewWatcher(
	st *state.State,
	cfg *config.Instance,
	status StatusFunc,
	hooks Hooks,
	clock clockwork.Clock,
) *Watcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Watcher{
		st:      st,
		cfg:     cfg,
		clock:   clock,
		status:  status,
		hooks:   hooks,
		retries: make(map[string]*retryEntry),
	}
}

// Start runs the poll loop until the state context is canceled.
func (w *Watcher) Start() {
	go w.pollLoop()
}

func (w *Watcher) pollLoop() {
	ctx := w.st.GetContext()
	interval := w.cfg.PollInterval()
	ticker := w.clock.NewTicker(interval)
	defer ticker.Stop()

	w.lastTick = w.clock.Now()
	w.Tick(ctx)

	for {
		select {
		case <-ticker.Chan():
			w.Tick(ctx)
		case <-ctx.Done():
			log.Debug().Msg("network watcher stopped")
			return
		}
	}
}

// Tick runs one poll cycle: wake detection, snapshot comparison and retry
// queue processing. Exported so tests can drive the watcher directly.
func (w *Watcher) Tick(ctx context.Context) {
	now := w.clock.Now()

	w.mu.Lock()
	gap := now.Sub(w.lastTick)
	w.lastTick = now
	w.mu.Unlock()

	if interval := w.cfg.PollInterval(); gap > wakeGapFactor*interval {
		w.handleWake(ctx, gap)
	}

	current := w.status(ctx)

	w.mu.Lock()
	prev := w.prev
	w.prev = &current
	w.mu.Unlock()

	if prev != nil {
		w.emitTransitions(ctx, *prev, current)
	}

	w.processRetries(ctx, current)
}

// CurrentStatus returns the latest snapshot, or a zero Status before the
// first poll completes.
func (w *Watcher) CurrentStatus() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.prev == nil {
		return Status{}
	}
	return *w.prev
}

func (w *Watcher) handleWake(ctx context.Context, gap time.Duration) {
	log.Info().Dur("gap", gap).Msg("wake from sleep suspected, cleaning up stale mounts")
	if w.hooks.CleanupStaleMounts != nil {
		w.hooks.CleanupStaleMounts(ctx)
	}
	w.triggerAutoMount(ctx, "wake")
}

// emitTransitions compares successive snapshots and emits one event per
// actual change. Recovery transitions additionally trigger an auto-mount
// sweep; loss transitions only mark state, unmounting under a dead network
// can block and is left to the health monitor.
func (w *Watcher) emitTransitions(ctx context.Context, prev, current Status) {
	ns := w.st.Notifications

	switch {
	case !prev.IsOnline && current.IsOnline:
		log.Info().Msg("network online")
		notifications.NetworkOnline(ns)
		w.st.SetAllUnreachable(false)
		w.triggerAutoMount(ctx, "network-online")
	case prev.IsOnline && !current.IsOnline:
		log.Info().Msg("network offline")
		notifications.NetworkOffline(ns)
		if marked := w.st.SetAllUnreachable(true); len(marked) > 0 {
			log.Info().Strs("labels", marked).Msg("marked mounted shares unreachable")
		}
	}

	switch {
	case !prev.HasInternet && current.HasInternet:
		notifications.InternetRestored(ns)
		w.triggerAutoMount(ctx, "internet-restored")
	case prev.HasInternet && !current.HasInternet:
		notifications.InternetLost(ns)
	}

	if prev.NetworkID != current.NetworkID && current.NetworkID != "" && prev.NetworkID != "" {
		log.Info().
			Str("previous", prev.NetworkID).
			Str("current", current.NetworkID).
			Msg("network changed")
		notifications.NetworkChanged(ns, models.NetworkChangedParams{
			Previous: prev.NetworkID,
			Current:  current.NetworkID,
		})
	}

	switch {
	case !prev.VPNConnected && current.VPNConnected:
		log.Info().Str("name", current.VPNName).Msg("vpn connected")
		notifications.VPNConnected(ns, models.VPNParams{Name: current.VPNName})
		w.st.SetAllUnreachable(false)
		w.triggerAutoMount(ctx, "vpn-connected")
	case prev.VPNConnected && !current.VPNConnected:
		log.Info().Str("name", prev.VPNName).Msg("vpn disconnected")
		notifications.VPNDisconnected(ns, models.VPNParams{Name: prev.VPNName})
		// shares behind the tunnel are gone; the health monitor sorts out
		// which ones actually survived
		if marked := w.st.SetAllUnreachable(true); len(marked) > 0 {
			log.Info().Strs("labels", marked).Msg("marked mounted shares unreachable")
		}
	}
}

func (w *Watcher) triggerAutoMount(ctx context.Context, trigger string) {
	if w.hooks.TriggerAutoMount != nil {
		w.hooks.TriggerAutoMount(ctx, trigger)
	}
}
