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

// Package api serves the JSON-RPC 2.0 API over a local websocket. Requests
// map method names to handlers; the notification broker feeds server-push
// events to every connected session.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/ShareMountProject/sharemount-core/pkg/api/methods"
	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/api/models/requests"
	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

var JSONRPCErrorParseError = models.ErrorObject{
	Code:    -32700,
	Message: "Parse error",
}

var JSONRPCErrorInvalidRequest = models.ErrorObject{
	Code:    -32600,
	Message: "Invalid Request",
}

var JSONRPCErrorMethodNotFound = models.ErrorObject{
	Code:    -32601,
	Message: "Method not found",
}

var JSONRPCErrorServerError = models.ErrorObject{
	Code:    -32000,
	Message: "Server error",
}

func maybeUUID(req *models.RequestObject) *uuid.UUID {
	return req.ID
}

var methodMap = map[string]func(requests.RequestEnv) (any, error){
	// mounts
	models.MethodMount:         methods.HandleMount,
	models.MethodUnmount:       methods.HandleUnmount,
	models.MethodUnmountAll:    methods.HandleUnmountAll,
	models.MethodMounts:        methods.HandleMounts,
	models.MethodMountsCleanup: methods.HandleMountsCleanup,
	// connections
	models.MethodConnections:        methods.HandleConnections,
	models.MethodConnectionsNew:     methods.HandleNewConnection,
	models.MethodConnectionsUpdate:  methods.HandleUpdateConnection,
	models.MethodConnectionsDelete:  methods.HandleDeleteConnection,
	models.MethodConnectionsRemount: methods.HandleRemountConnection,
	// settings
	models.MethodSettings:       methods.HandleSettings,
	models.MethodSettingsUpdate: methods.HandleSettingsUpdate,
	models.MethodSettingsReload: methods.HandleSettingsReload,
	// network
	models.MethodNetworkStatus:   methods.HandleNetworkStatus,
	models.MethodNetworkCheck:    methods.HandleNetworkCheck,
	models.MethodNetworkDiscover: methods.HandleNetworkDiscover,
	// utils
	models.MethodAutoMount: methods.HandleAutoMount,
	models.MethodVersion:   methods.HandleVersion,
}

func handleRequest(env requests.RequestEnv, req models.RequestObject) (any, *models.ErrorObject) {
	log.Debug().Str("method", req.Method).Msg("received request")

	fn, ok := methodMap[strings.ToLower(req.Method)]
	if !ok {
		return nil, &JSONRPCErrorMethodNotFound
	}

	env.ID = *req.ID
	env.Params = req.Params

	resp, err := fn(env)
	if err != nil {
		serverErr := JSONRPCErrorServerError
		serverErr.Message = err.Error()
		return nil, &serverErr
	}
	return resp, nil
}

func sendResponse(session *melody.Session, id uuid.UUID, result any) error {
	resp := models.ResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshalling response: %w", err)
	}

	if err := session.Write(data); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

func sendError(session *melody.Session, id *uuid.UUID, errObj models.ErrorObject) error {
	log.Debug().Int("code", errObj.Code).Str("message", errObj.Message).Msg("sending error")

	resp := models.ErrorResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &errObj,
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshalling error response: %w", err)
	}

	if err := session.Write(data); err != nil {
		return fmt.Errorf("writing error response: %w", err)
	}
	return nil
}

func broadcastNotifications(
	env requests.RequestEnv,
	session *melody.Melody,
	notifications <-chan models.Notification,
) {
	ctx := env.State.GetContext()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("stopping API notification broadcast")
			return
		case notif := <-notifications:
			obj := models.NotificationObject{
				JSONRPC: "2.0",
				Method:  notif.Method,
				Params:  notif.Params,
			}

			data, err := json.Marshal(obj)
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification")
				continue
			}

			if err := session.Broadcast(data); err != nil {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

func handleWSMessage(env requests.RequestEnv) func(session *melody.Session, msg []byte) {
	return func(session *melody.Session, msg []byte) {
		// ping command for heartbeat operation
		if bytes.Equal(msg, []byte("ping")) {
			if err := session.Write([]byte("pong")); err != nil {
				log.Error().Err(err).Msg("sending pong")
			}
			return
		}

		if !json.Valid(msg) {
			if err := sendError(session, nil, JSONRPCErrorParseError); err != nil {
				log.Error().Err(err).Msg("sending error response")
			}
			return
		}

		var req models.RequestObject
		err := json.Unmarshal(msg, &req)
		if err != nil || req.JSONRPC != "2.0" || req.Method == "" {
			if sendErr := sendError(session, maybeUUID(&req), JSONRPCErrorInvalidRequest); sendErr != nil {
				log.Error().Err(sendErr).Msg("sending error response")
			}
			return
		}

		if req.ID == nil {
			// request is a notification, nothing to respond to
			log.Info().Str("method", req.Method).Msg("received notification, ignoring")
			return
		}

		rawIP := strings.SplitN(session.Request.RemoteAddr, ":", 2)
		clientIP := net.ParseIP(rawIP[0])
		env.IsLocal = clientIP != nil && clientIP.IsLoopback()

		resp, errObj := handleRequest(env, req)
		if errObj != nil {
			if sendErr := sendError(session, req.ID, *errObj); sendErr != nil {
				log.Error().Err(sendErr).Msg("sending error response")
			}
			return
		}

		if sendErr := sendResponse(session, *req.ID, resp); sendErr != nil {
			log.Error().Err(sendErr).Msg("sending response")
		}
	}
}

// Start runs the API server until the state context is canceled. The
// listen address is loopback-only unless configured otherwise.
func Start(env requests.RequestEnv, notifications <-chan models.Notification) {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(middleware.Timeout(config.APIRequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
		ExposedHeaders: []string{},
	}))

	session := melody.New()
	session.Upgrader.CheckOrigin = func(_ *http.Request) bool { return true }
	go broadcastNotifications(env, session, notifications)

	r.Get("/api", func(w http.ResponseWriter, r *http.Request) {
		if err := session.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	r.Get("/api/v1", func(w http.ResponseWriter, r *http.Request) {
		if err := session.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request: v1")
		}
	})

	session.HandleMessage(handleWSMessage(env))

	addr := net.JoinHostPort(env.Config.APIListen(), strconv.Itoa(env.Config.APIPort()))
	log.Info().Str("addr", addr).Msg("API server listening")

	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: config.APIRequestTimeout,
	}

	go func() {
		<-env.State.GetContext().Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("error starting API server")
	}
}
