/*
Sharemount Core
Copyright (c) 2026 The Sharemount Project Contributors.
SPDX-License-Identifier: GPL-3.0-or-later

This file is part of Sharemount Core.

Sharemount Core is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Sharemount Core is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Sharemount Core.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package broker fans service notifications out to in-process consumers.
// Sends are non-blocking so a slow consumer can never stall a mount.
package broker

import (
	"context"

	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

type subscriber struct {
	ch      chan models.Notification
	methods map[string]struct{}
}

func (s *subscriber) wants(method string) bool {
	if len(s.methods) == 0 {
		return true
	}
	_, ok := s.methods[method]
	return ok
}

// Broker reads notifications from the state's source channel and
// broadcasts each one to every subscriber whose method filter matches.
type Broker struct {
	ctx         context.Context
	source      <-chan models.Notification
	subscribers map[int]*subscriber
	mu          syncutil.RWMutex
	nextID      int
}

func NewBroker(ctx context.Context, source <-chan models.Notification) *Broker {
	return &Broker{
		ctx:         ctx,
		source:      source,
		subscribers: make(map[int]*subscriber),
	}
}

// Start runs the broadcast loop until the source channel closes or the
// context is canceled, then closes every subscriber channel.
func (b *Broker) Start() {
	go func() {
		for {
			select {
			case notif, ok := <-b.source:
				if !ok {
					log.Debug().Msg("broker: source channel closed")
					b.closeAllSubscribers()
					return
				}
				b.broadcast(notif)
			case <-b.ctx.Done():
				log.Debug().Msg("broker: context cancelled, shutting down")
				b.closeAllSubscribers()
				return
			}
		}
	}()
}

func (b *Broker) broadcast(notif models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if !sub.wants(notif.Method) {
			continue
		}
		select {
		case sub.ch <- notif:
		default:
			// full buffer means the consumer stopped reading; dropping
			// here is what keeps the mount path unblocked
			log.Warn().
				Int("subscriber_id", id).
				Str("method", notif.Method).
				Msg("subscriber channel full, dropping notification")
		}
	}
}

// Subscribe registers a consumer for every notification method. The
// returned ID releases the subscription via Unsubscribe.
func (b *Broker) Subscribe(bufferSize int) (<-chan models.Notification, int) {
	return b.SubscribeMethods(bufferSize)
}

// SubscribeMethods registers a consumer for the named notification
// methods only, e.g. models.NotificationMountAdded. No methods means no
// filter. Notifications that overflow bufferSize are dropped for this
// consumer, not queued.
func (b *Broker) SubscribeMethods(bufferSize int, methods ...string) (<-chan models.Notification, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	sub := &subscriber{ch: make(chan models.Notification, bufferSize)}
	if len(methods) > 0 {
		sub.methods = make(map[string]struct{}, len(methods))
		for _, method := range methods {
			sub.methods[method] = struct{}{}
		}
	}
	b.subscribers[id] = sub

	log.Debug().
		Int("subscriber_id", id).
		Int("buffer_size", bufferSize).
		Strs("methods", methods).
		Msg("new subscriber registered")

	return sub.ch, id
}

// Unsubscribe removes a subscription and closes its channel. Safe to
// call twice with the same ID.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("subscriber unsubscribed")
	}
}

// Stop closes every subscriber channel. Called during service shutdown.
func (b *Broker) Stop() {
	b.closeAllSubscribers()
}

func (b *Broker) closeAllSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("closed subscriber channel on shutdown")
	}
	b.subscribers = make(map[int]*subscriber)
}
