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

package smb

import (
	"context"
	"net"
	"strings"
	"time"

	smb2 "github.com/cloudsoda/go-smb2"
	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"
)

// Connectivity is the result of a pre-mount reachability probe. Method
// names the first check that succeeded: "smb", "ping", "dns" or "mdns".
type Connectivity struct {
	Method     string
	Accessible bool
}

const (
	probeTimeout    = 2 * time.Second
	discoverTimeout = 3 * time.Second
	smbPort         = "445"
)

// QuickConnectivityCheck probes a server before a mount attempt: SMB port
// first, then ICMP ping, then name resolution (mDNS for .local hosts). An
// inaccessible result is advisory only. NetBIOS name resolution inside
// mount_smbfs can succeed where all of these fail, so callers warn and
// proceed rather than refusing to mount.
func (b *Backend) QuickConnectivityCheck(ctx context.Context, serverName string) Connectivity {
	if b.probeSMB(ctx, serverName) {
		return Connectivity{Accessible: true, Method: "smb"}
	}
	if b.probePing(ctx, serverName) {
		return Connectivity{Accessible: true, Method: "ping"}
	}
	if isLocalName(serverName) {
		if b.probeMDNS(ctx, serverName) {
			return Connectivity{Accessible: true, Method: "mdns"}
		}
	} else if b.probeDNS(ctx, serverName) {
		return Connectivity{Accessible: true, Method: "dns"}
	}
	return Connectivity{Accessible: false}
}

// probeSMB confirms an actual SMB server is answering, not just an open
// port: it dials 445 and runs an SMB2 negotiate as guest. A rejected login
// still proves the server is alive, so only transport failures count
// against it.
func (b *Backend) probeSMB(ctx context.Context, serverName string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User: "guest",
		},
	}
	session, err := d.Dial(probeCtx, net.JoinHostPort(serverName, smbPort))
	if err != nil {
		// negotiate reached the server; a credential rejection is a live host
		return strings.Contains(strings.ToLower(err.Error()), "logon")
	}
	if err := session.Logoff(); err != nil {
		log.Debug().Err(err).Msg("error logging off probe session")
	}
	return true
}

func (b *Backend) probePing(ctx context.Context, serverName string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	// -W is milliseconds on macOS
	err := b.cmd.Run(probeCtx, "ping", "-c", "1", "-W", "2000", serverName)
	return err == nil
}

func (b *Backend) probeDNS(ctx context.Context, serverName string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	resolver := net.Resolver{}
	addrs, err := resolver.LookupHost(probeCtx, serverName)
	return err == nil && len(addrs) > 0
}

// probeMDNS looks for the host among Bonjour-advertised SMB services.
// Plain DNS knows nothing about .local names, but macOS SMB servers
// advertise _smb._tcp and show up here.
func (b *Backend) probeMDNS(ctx context.Context, serverName string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		log.Debug().Err(err).Msg("failed to create mdns resolver")
		return false
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	found := make(chan bool, 1)
	want := strings.ToLower(strings.TrimSuffix(serverName, ".local"))

	go func() {
		for entry := range entries {
			hostname := strings.ToLower(strings.TrimSuffix(entry.HostName, "."))
			if strings.TrimSuffix(hostname, ".local") == want ||
				strings.EqualFold(entry.Instance, want) {
				select {
				case found <- true:
				default:
				}
			}
		}
	}()

	if err := resolver.Browse(probeCtx, "_smb._tcp", "local.", entries); err != nil {
		log.Debug().Err(err).Msg("mdns browse failed")
		return false
	}

	select {
	case <-found:
		return true
	case <-probeCtx.Done():
		return false
	}
}

func isLocalName(serverName string) bool {
	return strings.HasSuffix(strings.ToLower(serverName), ".local")
}

// DiscoveredServer is an SMB server advertised over Bonjour.
type DiscoveredServer struct {
	Name string
	Host string
	Addr string
}

// DiscoverServers browses the local network for advertised SMB servers.
// Backs the network.discover method so clients can offer nearby servers
// without the user typing a host.
func (b *Backend) DiscoverServers(ctx context.Context) ([]DiscoveredServer, error) {
	browseCtx, cancel := context.WithTimeout(ctx, discoverTimeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}

	entries := make(chan *zeroconf.ServiceEntry, 32)
	if err := resolver.Browse(browseCtx, "_smb._tcp", "local.", entries); err != nil {
		return nil, err
	}

	var servers []DiscoveredServer
	for entry := range entries {
		server := DiscoveredServer{
			Name: entry.Instance,
			Host: strings.TrimSuffix(entry.HostName, "."),
		}
		if len(entry.AddrIPv4) > 0 {
			server.Addr = entry.AddrIPv4[0].String()
		}
		servers = append(servers, server)
	}
	return servers, nil
}
