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

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	NotificationRunning            = "running"
	NotificationNetworkOnline      = "network.online"
	NotificationNetworkOffline     = "network.offline"
	NotificationInternetRestored   = "network.internet.restored"
	NotificationInternetLost       = "network.internet.lost"
	NotificationNetworkChanged     = "network.changed"
	NotificationVPNConnected       = "vpn.connected"
	NotificationVPNDisconnected    = "vpn.disconnected"
	NotificationMountAdded         = "mounts.added"
	NotificationMountRemoved       = "mounts.removed"
	NotificationConflictsResolved  = "mounts.conflicts.resolved"
	NotificationAutoMountCompleted = "automount.completed"
	NotificationSharesDisconnected = "shares.disconnected"
	NotificationShareReconnected   = "shares.reconnected"
	NotificationReconnectFailed    = "shares.reconnect.failed"
)

const (
	MethodMount              = "mount"
	MethodUnmount            = "unmount"
	MethodUnmountAll         = "unmount.all"
	MethodMounts             = "mounts"
	MethodMountsCleanup      = "mounts.cleanup"
	MethodConnections        = "connections"
	MethodConnectionsNew     = "connections.new"
	MethodConnectionsUpdate  = "connections.update"
	MethodConnectionsDelete  = "connections.delete"
	MethodConnectionsRemount = "connections.remount"
	MethodSettings           = "settings"
	MethodSettingsUpdate     = "settings.update"
	MethodSettingsReload     = "settings.reload"
	MethodNetworkStatus      = "network.status"
	MethodNetworkCheck       = "network.check"
	MethodNetworkDiscover    = "network.discover"
	MethodAutoMount          = "automount"
	MethodVersion            = "version"
)

type Notification struct {
	Params any
	Method string
}

type RequestObject struct {
	ID      *uuid.UUID      `json:"id,omitempty"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type ResponseObject struct {
	Result  any       `json:"result"`
	JSONRPC string    `json:"jsonrpc"`
	ID      uuid.UUID `json:"id"`
}

type ErrorObject struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type ErrorResponseObject struct {
	Error   *ErrorObject `json:"error,omitempty"`
	ID      *uuid.UUID   `json:"id"`
	JSONRPC string       `json:"jsonrpc"`
}

type NotificationObject struct {
	Params  any    `json:"params,omitempty"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
}

// MountParams is a user-initiated mount request. SharePath accepts any of
// the forms "smb://host/share", "//host/share" or "host/share".
type MountParams struct {
	SaveCredentials *bool  `json:"saveCredentials,omitempty"`
	AutoMount       *bool  `json:"autoMount,omitempty"`
	SharePath       string `json:"sharePath" validate:"required"`
	Username        string `json:"username" validate:"required"`
	Password        string `json:"password"`
	Label           string `json:"label,omitempty"`
}

// MountResult is returned for every user-initiated mount and unmount call.
// Failures are reported in Message rather than as JSON-RPC errors so the UI
// layer always has something human-readable to show.
type MountResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	MountPoint string `json:"mountPoint,omitempty"`
	Label      string `json:"label,omitempty"`
}

type UnmountParams struct {
	Label string `json:"label" validate:"required"`
}

type MountedShareResponse struct {
	MountedAt   time.Time `json:"mountedAt"`
	Label       string    `json:"label"`
	MountPoint  string    `json:"mountPoint"`
	SharePath   string    `json:"sharePath"`
	Username    string    `json:"username"`
	Unreachable bool      `json:"unreachable"`
}

type ConnectionResponse struct {
	LastUsed  time.Time `json:"lastUsed"`
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	SharePath string    `json:"sharePath"`
	Username  string    `json:"username"`
	AutoMount bool      `json:"autoMount"`
}

type NewConnectionParams struct {
	Label     string `json:"label" validate:"required"`
	SharePath string `json:"sharePath" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password,omitempty"`
	AutoMount bool   `json:"autoMount"`
}

type UpdateConnectionParams struct {
	Label     *string `json:"label,omitempty"`
	SharePath *string `json:"sharePath,omitempty"`
	Username  *string `json:"username,omitempty"`
	AutoMount *bool   `json:"autoMount,omitempty"`
	ID        string  `json:"id" validate:"required"`
}

type UpdateConnectionResult struct {
	ChangedFields []string `json:"changedFields"`
	NeedsRemount  bool     `json:"needsRemount"`
}

type DeleteConnectionParams struct {
	ID string `json:"id" validate:"required"`
}

type RemountParams struct {
	ID string `json:"id" validate:"required"`
}

type SettingsResponse struct {
	MountRoot           string `json:"mountRoot"`
	AutoMount           bool   `json:"autoMount"`
	RememberCredentials bool   `json:"rememberCredentials"`
	PollInterval        int    `json:"pollInterval"`
	HealthInterval      int    `json:"healthInterval"`
	DebugLogging        bool   `json:"debugLogging"`
}

type UpdateSettingsParams struct {
	MountRoot           *string `json:"mountRoot,omitempty"`
	AutoMount           *bool   `json:"autoMount,omitempty"`
	RememberCredentials *bool   `json:"rememberCredentials,omitempty"`
	DebugLogging        *bool   `json:"debugLogging,omitempty"`
}

type NetworkCheckParams struct {
	Server string `json:"server" validate:"required"`
}

type NetworkCheckResponse struct {
	Server     string `json:"server"`
	Method     string `json:"method,omitempty"`
	Accessible bool   `json:"accessible"`
}

// DiscoveredServerResponse is one SMB server found on the local network.
type DiscoveredServerResponse struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Addr string `json:"addr,omitempty"`
}

type NetworkStatusResponse struct {
	LastChecked  time.Time `json:"lastChecked"`
	NetworkID    string    `json:"networkId,omitempty"`
	VPNName      string    `json:"vpnName,omitempty"`
	IsOnline     bool      `json:"isOnline"`
	HasInternet  bool      `json:"hasInternet"`
	VPNConnected bool      `json:"vpnConnected"`
}

// AutoMountResult is the outcome for a single saved connection during an
// auto-mount sweep.
// AutoMountTriggerParams optionally tags a manual sweep request.
type AutoMountTriggerParams struct {
	Trigger string `json:"trigger,omitempty"`
}

type AutoMountResult struct {
	Label   string `json:"label"`
	Message string `json:"message,omitempty"`
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped"`
}

type AutoMountSummary struct {
	ConnectionsWithConflicts []string `json:"connectionsWithConflicts,omitempty"`
	TotalAttempted           int      `json:"totalAttempted"`
	Successful               int      `json:"successful"`
	Failed                   int      `json:"failed"`
	ConflictsResolved        int      `json:"conflictsResolved"`
}

type AutoMountCompletedParams struct {
	Trigger string            `json:"trigger"`
	Results []AutoMountResult `json:"results"`
	Summary AutoMountSummary  `json:"summary"`
}

type ConflictsResolvedParams struct {
	SharePath string `json:"sharePath,omitempty"`
	Count     int    `json:"count"`
}

type CleanupResultResponse struct {
	CleanedMounts []string `json:"cleanedMounts"`
	Errors        []string `json:"errors,omitempty"`
	TotalCleaned  int      `json:"totalCleaned"`
}

type SharesDisconnectedParams struct {
	Labels []string `json:"labels"`
}

type ShareReconnectedParams struct {
	Label   string `json:"label"`
	Attempt int    `json:"attempt"`
}

type ReconnectFailedParams struct {
	Label    string `json:"label"`
	Message  string `json:"message,omitempty"`
	Attempt  int    `json:"attempt"`
	Attempts int    `json:"attempts"`
	GaveUp   bool   `json:"gaveUp"`
}

type NetworkChangedParams struct {
	Previous string `json:"previous,omitempty"`
	Current  string `json:"current,omitempty"`
}

type VPNParams struct {
	Name string `json:"name,omitempty"`
}

type VersionResponse struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
}
