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

package netwatch

import (
	"context"
	"time"

	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/api/notifications"
	"github.com/rs/zerolog/log"
)

// retryEntry is one saved connection pending reconnection. Backoff doubles
// per attempt from the configured base delay; exhausting the attempt
// budget removes the entry permanently.
type retryEntry struct {
	nextAttempt time.Time
	label       string
	attempt     int
}

// EnqueueRetry schedules a connection for reconnection attempts. Called by
// the health monitor when a tracked share drops out of the mount table.
// Re-enqueueing a connection already in the queue resets its backoff.
func (w *Watcher) EnqueueRetry(connID, label string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.retries[connID] = &retryEntry{
		label:       label,
		attempt:     0,
		nextAttempt: w.clock.Now().Add(w.cfg.RetryBaseDelay()),
	}
	log.Info().Str("label", label).Msg("queued share for reconnection")
}

// DropRetry removes a connection from the retry queue, used when the
// connection is deleted or explicitly remounted.
func (w *Watcher) DropRetry(connID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.retries, connID)
}

// RetryQueueLen reports the number of pending reconnections.
func (w *Watcher) RetryQueueLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.retries)
}

// processRetries attempts every due entry. Nothing is attempted while the
// network is down; backoff schedules are left untouched so entries fire
// once connectivity returns.
func (w *Watcher) processRetries(ctx context.Context, current Status) {
	if !current.IsOnline {
		return
	}

	now := w.clock.Now()

	w.mu.Lock()
	var due []string
	for id, entry := range w.retries {
		if !entry.nextAttempt.After(now) {
			due = append(due, id)
		}
	}
	w.mu.Unlock()

	for _, id := range due {
		w.attemptRetry(ctx, id)
	}
}

func (w *Watcher) attemptRetry(ctx context.Context, connID string) {
	w.mu.Lock()
	entry, ok := w.retries[connID]
	if !ok {
		w.mu.Unlock()
		return
	}
	entry.attempt++
	attempt := entry.attempt
	label := entry.label
	w.mu.Unlock()

	maxAttempts := w.cfg.RetryMaxAttempts()
	ns := w.st.Notifications

	var err error
	if w.hooks.RemountConnection != nil {
		err = w.hooks.RemountConnection(ctx, connID)
	}

	if err == nil {
		log.Info().Str("label", label).Int("attempt", attempt).Msg("share reconnected")
		w.DropRetry(connID)
		notifications.ShareReconnected(ns, models.ShareReconnectedParams{
			Label:   label,
			Attempt: attempt,
		})
		return
	}

	if attempt >= maxAttempts {
		log.Warn().
			Str("label", label).
			Int("attempts", attempt).
			Err(err).
			Msg("giving up on share reconnection")
		w.DropRetry(connID)
		notifications.ReconnectFailed(ns, models.ReconnectFailedParams{
			Label:    label,
			Message:  err.Error(),
			Attempt:  attempt,
			Attempts: maxAttempts,
			GaveUp:   true,
		})
		return
	}

	// double the delay per failed attempt
	delay := w.cfg.RetryBaseDelay() << (attempt - 1)
	w.mu.Lock()
	if entry, ok := w.retries[connID]; ok {
		entry.nextAttempt = w.clock.Now().Add(delay)
	}
	w.mu.Unlock()

	log.Info().
		Str("label", label).
		Int("attempt", attempt).
		Dur("nextIn", delay).
		Err(err).
		Msg("share reconnection failed, backing off")
	notifications.ReconnectFailed(ns, models.ReconnectFailedParams{
		Label:    label,
		Message:  err.Error(),
		Attempt:  attempt,
		Attempts: maxAttempts,
	})
}
