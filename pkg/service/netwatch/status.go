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
	"net"
	"strings"
	"time"

	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/helpers/command"
	"github.com/rs/zerolog/log"
	gopsnet "github.com/shirou/gopsutil/v4/net"
)

// Status is one snapshot of network state. Snapshots are recomputed each
// poll and compared pairwise to derive transition events.
type Status struct {
	LastChecked  time.Time
	NetworkID    string
	VPNName      string
	IsOnline     bool
	HasInternet  bool
	VPNConnected bool
}

const (
	internetProbeTimeout = 2 * time.Second
	commandProbeTimeout  = 3 * time.Second
)

// StatusFunc computes a network snapshot. The watcher takes it as a
// dependency so tests can drive transitions without a real network.
type StatusFunc func(ctx context.Context) Status

// NewStatusProber builds the production StatusFunc from the local
// interface table, TCP probes against the configured targets and the
// macOS network tools.
func NewStatusProber(cfg *config.Instance, cmd command.Executor) StatusFunc {
	if cmd == nil {
		cmd = &command.RealExecutor{}
	}
	return func(ctx context.Context) Status {
		status := Status{LastChecked: time.Now()}

		status.IsOnline = anyInterfaceUp()
		status.HasInternet = probeInternet(ctx, cfg.ProbeTargets())
		// a working upstream probe proves the link regardless of what the
		// interface table claimed
		if status.HasInternet {
			status.IsOnline = true
		}

		status.NetworkID = currentNetworkID(ctx, cmd)
		status.VPNConnected, status.VPNName = vpnStatus(ctx, cmd)

		return status
	}
}

// anyInterfaceUp reports whether any non-loopback interface is up with an
// address assigned.
func anyInterfaceUp() bool {
	ifaces, err := gopsnet.Interfaces()
	if err != nil {
		log.Warn().Err(err).Msg("failed to list network interfaces")
		return false
	}
	for _, iface := range ifaces {
		up, loopback := false, false
		for _, flag := range iface.Flags {
			switch flag {
			case "up":
				up = true
			case "loopback":
				loopback = true
			}
		}
		if up && !loopback && len(iface.Addrs) > 0 {
			return true
		}
	}
	return false
}

// probeInternet dials the probe targets in order; any single success
// counts as internet reachability.
func probeInternet(ctx context.Context, targets []string) bool {
	for _, target := range targets {
		dialCtx, cancel := context.WithTimeout(ctx, internetProbeTimeout)
		dialer := net.Dialer{}
		conn, err := dialer.DialContext(dialCtx, "tcp", target)
		cancel()
		if err != nil {
			continue
		}
		_ = conn.Close()
		return true
	}
	return false
}

// currentNetworkID identifies the current network, preferring the Wi-Fi
// SSID and falling back to the default route interface.
func currentNetworkID(ctx context.Context, cmd command.Executor) string {
	probeCtx, cancel := context.WithTimeout(ctx, commandProbeTimeout)
	defer cancel()

	out, err := cmd.Output(probeCtx, "networksetup", "-getairportnetwork", "en0")
	if err == nil {
		// "Current Wi-Fi Network: HomeNet"
		if _, ssid, found := strings.Cut(strings.TrimSpace(string(out)), ": "); found && ssid != "" {
			return ssid
		}
	}

	out, err = cmd.Output(probeCtx, "route", "-n", "get", "default")
	if err != nil {
		return ""
	}
	for line := range strings.Lines(string(out)) {
		line = strings.TrimSpace(line)
		if iface, found := strings.CutPrefix(line, "interface: "); found {
			return iface
		}
	}
	return ""
}

// vpnStatus reports the first connected VPN service from the system
// network configuration.
func vpnStatus(ctx context.Context, cmd command.Executor) (connected bool, name string) {
	probeCtx, cancel := context.WithTimeout(ctx, commandProbeTimeout)
	defer cancel()

	out, err := cmd.Output(probeCtx, "scutil", "--nc", "list")
	if err != nil {
		return false, ""
	}

	// lines look like:
	//   * (Connected)       UUID PPP --> "Office VPN" [PPP:L2TP]
	for line := range strings.Lines(string(out)) {
		if !strings.Contains(line, "(Connected)") {
			continue
		}
		if _, rest, found := strings.Cut(line, `"`); found {
			if vpnName, _, closed := strings.Cut(rest, `"`); closed {
				return true, vpnName
			}
		}
		return true, ""
	}
	return false, ""
}
