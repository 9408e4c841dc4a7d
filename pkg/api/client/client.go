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

// Package client is a minimal websocket JSON-RPC client for talking to a
// locally running service, used by the tray UI and command line flags.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrRequestTimeout   = errors.New("request timed out")
	ErrInvalidParams    = errors.New("invalid params")
	ErrRequestCancelled = errors.New("request cancelled")
)

const APIPath = "/api/v1"

// responseEnvelope covers both success and error response shapes.
type responseEnvelope struct {
	Result  json.RawMessage     `json:"result"`
	Error   *models.ErrorObject `json:"error,omitempty"`
	ID      *uuid.UUID          `json:"id"`
	JSONRPC string              `json:"jsonrpc"`
}

func localWebsocketURL(cfg *config.Instance) url.URL {
	return url.URL{
		Scheme: "ws",
		Host:   "localhost:" + strconv.Itoa(cfg.APIPort()),
		Path:   APIPath,
	}
}

// LocalClient sends a single method with params to the local running API
// service, waits for a response until timeout then disconnects.
func LocalClient(
	ctx context.Context,
	cfg *config.Instance,
	method string,
	params string,
) (string, error) {
	wsURL := localWebsocketURL(cfg)

	id, err := uuid.NewUUID()
	if err != nil {
		return "", fmt.Errorf("generating request id: %w", err)
	}

	req := models.RequestObject{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
	}

	switch {
	case len(params) == 0:
		req.Params = nil
	case json.Valid([]byte(params)):
		req.Params = []byte(params)
	default:
		return "", ErrInvalidParams
	}

	c, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("connecting to local service: %w", err)
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing websocket")
		}
	}()

	done := make(chan struct{})
	var resp *responseEnvelope

	go func() {
		defer close(done)
		for {
			_, message, readErr := c.ReadMessage()
			if readErr != nil {
				return
			}

			var m responseEnvelope
			if json.Unmarshal(message, &m) != nil {
				continue
			}
			if m.JSONRPC != "2.0" || m.ID == nil || *m.ID != id {
				continue
			}

			resp = &m
			return
		}
	}()

	if err := c.WriteJSON(req); err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}

	timer := time.NewTimer(config.APIRequestTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		_ = c.Close()
		return "", ErrRequestTimeout
	case <-ctx.Done():
		_ = c.Close()
		return "", ErrRequestCancelled
	}

	if resp == nil {
		return "", ErrRequestTimeout
	}
	if resp.Error != nil {
		return "", errors.New(resp.Error.Message)
	}

	return string(resp.Result), nil
}

// Notification is one server-push event received over the stream.
type Notification struct {
	Params json.RawMessage
	Method string
}

// ListenNotifications connects to the local service and forwards every
// notification to handler until the context is canceled or the connection
// drops. It returns the error that ended the stream, nil on context
// cancellation.
func ListenNotifications(
	ctx context.Context,
	cfg *config.Instance,
	handler func(Notification),
) error {
	wsURL := localWebsocketURL(cfg)

	c, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return fmt.Errorf("connecting to local service: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	for {
		_, message, readErr := c.ReadMessage()
		if readErr != nil {
			_ = c.Close()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading notification stream: %w", readErr)
		}

		var obj struct {
			Params  json.RawMessage `json:"params"`
			Method  string          `json:"method"`
			JSONRPC string          `json:"jsonrpc"`
			ID      *uuid.UUID      `json:"id"`
		}
		if json.Unmarshal(message, &obj) != nil {
			continue
		}
		// responses to someone else's requests carry an ID, skip them
		if obj.Method == "" || obj.ID != nil {
			continue
		}

		handler(Notification{Method: obj.Method, Params: obj.Params})
	}
}

// IsServiceRunning checks whether a local service instance answers on the
// configured API port.
func IsServiceRunning(cfg *config.Instance) bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := LocalClient(ctx, cfg, models.MethodVersion, "")
	return err == nil
}

// WaitForAPI polls until the local API answers or maxWait passes.
func WaitForAPI(cfg *config.Instance, maxWait, checkInterval time.Duration) bool {
	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		if IsServiceRunning(cfg) {
			return true
		}
		time.Sleep(checkInterval)
	}
	return false
}
