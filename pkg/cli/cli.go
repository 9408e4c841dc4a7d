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

package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ShareMountProject/sharemount-core/pkg/api/client"
	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/helpers"
	"github.com/ShareMountProject/sharemount-core/pkg/platforms"
	"github.com/ShareMountProject/sharemount-core/pkg/smb"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Flags struct {
	Mount    *string
	Username *string
	Password *string
	Label    *string
	Unmount  *string
	Mounts   *bool
	Discover *bool
	API      *string
	Version  *bool
	Reload   *bool
}

// SetupFlags defines all common CLI flags between platforms.
func SetupFlags() *Flags {
	return &Flags{
		Mount: flag.String(
			"mount",
			"",
			"mount a share path (e.g. //user@server/share)",
		),
		Username: flag.String(
			"username",
			"",
			"username for the mount flag",
		),
		Password: flag.String(
			"password",
			"",
			"password for the mount flag",
		),
		Label: flag.String(
			"label",
			"",
			"display label for the mount flag",
		),
		Unmount: flag.String(
			"unmount",
			"",
			"unmount a share by label",
		),
		Mounts: flag.Bool(
			"mounts",
			false,
			"list currently mounted shares",
		),
		Discover: flag.Bool(
			"discover",
			false,
			"browse the local network for SMB servers",
		),
		API: flag.String(
			"api",
			"",
			"send method and params to API and print response",
		),
		Version: flag.Bool(
			"version",
			false,
			"print version and exit",
		),
		Reload: flag.Bool(
			"reload",
			false,
			"reload settings from disk",
		),
	}
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Pre runs flag parsing and actions any immediate flags that don't
// require environment setup. Add any custom flags before running this.
func (f *Flags) Pre(pl platforms.Platform) {
	flag.Parse()

	if *f.Version {
		_, _ = fmt.Printf("Sharemount v%s (%s)\n", config.AppVersion, pl.ID())
		os.Exit(0)
	}
}

func mountFlag(cfg *config.Instance, f *Flags) {
	sharePath := smb.Normalize(*f.Mount)
	username := *f.Username
	if username == "" {
		// a //user@server/share path carries its own username
		if host, _, found := strings.Cut(sharePath, "/"); found {
			if at := strings.LastIndex(host, "@"); at >= 0 {
				username = host[:at]
			}
		}
		sharePath = smb.StripUserPrefix(sharePath)
	}

	data, err := json.Marshal(&models.MountParams{
		SharePath: sharePath,
		Username:  username,
		Password:  *f.Password,
		Label:     *f.Label,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error encoding params: %v\n", err)
		os.Exit(1)
	}

	resp, err := client.LocalClient(context.Background(), cfg, models.MethodMount, string(data))
	if err != nil {
		log.Error().Err(err).Msg("error mounting share")
		_, _ = fmt.Fprintf(os.Stderr, "Error mounting share: %v\n", err)
		os.Exit(1)
	}

	var result models.MountResult
	if err := json.Unmarshal([]byte(resp), &result); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error decoding response: %v\n", err)
		os.Exit(1)
	}
	if !result.Success {
		_, _ = fmt.Fprintf(os.Stderr, "Mount failed: %s\n", result.Message)
		os.Exit(1)
	}

	_, _ = fmt.Printf("Mounted %s at %s\n", result.Label, result.MountPoint)
	os.Exit(0)
}

// Post actions all remaining common flags that require the environment to be
// set up. Logging is allowed.
func (f *Flags) Post(cfg *config.Instance, _ platforms.Platform) {
	switch {
	case isFlagPassed("mount"):
		if *f.Mount == "" {
			_, _ = fmt.Fprint(os.Stderr, "Error: mount flag requires a share path\n")
			os.Exit(1)
		}
		mountFlag(cfg, f)
	case isFlagPassed("unmount"):
		if *f.Unmount == "" {
			_, _ = fmt.Fprint(os.Stderr, "Error: unmount flag requires a label\n")
			os.Exit(1)
		}

		data, err := json.Marshal(&models.UnmountParams{
			Label: *f.Unmount,
		})
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error encoding params: %v\n", err)
			os.Exit(1)
		}

		_, err = client.LocalClient(context.Background(), cfg, models.MethodUnmount, string(data))
		if err != nil {
			log.Error().Err(err).Msg("error unmounting share")
			_, _ = fmt.Fprintf(os.Stderr, "Error unmounting share: %v\n", err)
			os.Exit(1)
		}
		_, _ = fmt.Printf("Unmounted %s\n", *f.Unmount)
		os.Exit(0)
	case *f.Mounts:
		resp, err := client.LocalClient(context.Background(), cfg, models.MethodMounts, "")
		if err != nil {
			log.Error().Err(err).Msg("error listing mounts")
			_, _ = fmt.Fprintf(os.Stderr, "Error listing mounts: %v\n", err)
			os.Exit(1)
		}

		var mounts []models.MountedShareResponse
		if err := json.Unmarshal([]byte(resp), &mounts); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error decoding response: %v\n", err)
			os.Exit(1)
		}
		if len(mounts) == 0 {
			_, _ = fmt.Println("No shares mounted")
			os.Exit(0)
		}
		for _, m := range mounts {
			_, _ = fmt.Printf("%s\t%s\t%s\n", m.Label, m.SharePath, m.MountPoint)
		}
		os.Exit(0)
	case *f.Discover:
		resp, err := client.LocalClient(context.Background(), cfg, models.MethodNetworkDiscover, "")
		if err != nil {
			log.Error().Err(err).Msg("error discovering servers")
			_, _ = fmt.Fprintf(os.Stderr, "Error discovering servers: %v\n", err)
			os.Exit(1)
		}

		var servers []models.DiscoveredServerResponse
		if err := json.Unmarshal([]byte(resp), &servers); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error decoding response: %v\n", err)
			os.Exit(1)
		}
		if len(servers) == 0 {
			_, _ = fmt.Println("No servers found")
			os.Exit(0)
		}
		for _, s := range servers {
			_, _ = fmt.Printf("%s\t%s\t%s\n", s.Name, s.Host, s.Addr)
		}
		os.Exit(0)
	case isFlagPassed("api"):
		if *f.API == "" {
			_, _ = fmt.Fprint(os.Stderr, "Error: api flag requires a value\n")
			os.Exit(1)
		}

		ps := strings.SplitN(*f.API, ":", 2)
		method := ps[0]
		params := ""
		if len(ps) > 1 {
			params = ps[1]
		}

		resp, err := client.LocalClient(context.Background(), cfg, method, params)
		if err != nil {
			log.Error().Err(err).Msg("error calling API")
			_, _ = fmt.Fprintf(os.Stderr, "Error calling API: %v\n", err)
			os.Exit(1)
		}

		_, _ = fmt.Println(resp)
		os.Exit(0)
	case *f.Reload:
		_, err := client.LocalClient(context.Background(), cfg, models.MethodSettingsReload, "")
		if err != nil {
			log.Error().Err(err).Msg("error reloading settings")
			_, _ = fmt.Fprintf(os.Stderr, "Error reloading: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
}

// Setup initializes the user config and logging. Returns a user config object.
//
//nolint:gocritic // config struct copied for immutability
func Setup(
	pl platforms.Platform,
	defaultConfig config.Values,
	writers []io.Writer,
) *config.Instance {
	// Ensure directories exist before logging initialization
	err := helpers.EnsureDirectories(pl)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error creating directories: %v\n", err)
		os.Exit(1)
	}

	err = helpers.InitLogging(pl, writers)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(pl), defaultConfig)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return cfg
}
