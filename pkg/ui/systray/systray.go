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

//go:build darwin

package systray

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"fyne.io/systray"
	"github.com/ShareMountProject/sharemount-core/pkg/api/client"
	"github.com/ShareMountProject/sharemount-core/pkg/api/models"
	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/platforms"
	"github.com/nixinwang/dialog"
	"github.com/rs/zerolog/log"
)

func mountedCount(cfg *config.Instance) (int, error) {
	resp, err := client.LocalClient(context.Background(), cfg, models.MethodMounts, "")
	if err != nil {
		return 0, fmt.Errorf("querying mounts: %w", err)
	}
	var mounts []models.MountedShareResponse
	if err := json.Unmarshal([]byte(resp), &mounts); err != nil {
		return 0, fmt.Errorf("decoding mounts: %w", err)
	}
	return len(mounts), nil
}

// watchStatus keeps the status menu item in sync with the service by
// listening on the notification stream, reconnecting when the service
// restarts.
func watchStatus(cfg *config.Instance, mStatus *systray.MenuItem) {
	refresh := func() {
		count, err := mountedCount(cfg)
		if err != nil {
			mStatus.SetTitle("Service not running")
			return
		}
		switch count {
		case 0:
			mStatus.SetTitle("No shares mounted")
		case 1:
			mStatus.SetTitle("1 share mounted")
		default:
			mStatus.SetTitle(fmt.Sprintf("%d shares mounted", count))
		}
	}

	refresh()
	for {
		err := client.ListenNotifications(
			context.Background(), cfg,
			func(n client.Notification) {
				switch n.Method {
				case models.NotificationMountAdded,
					models.NotificationMountRemoved,
					models.NotificationSharesDisconnected,
					models.NotificationRunning:
					refresh()
				}
			},
		)
		if err != nil {
			log.Debug().Err(err).Msg("notification stream closed")
		}
		refresh()
		time.Sleep(5 * time.Second)
	}
}

func systrayOnReady(
	cfg *config.Instance,
	pl platforms.Platform,
	icon []byte,
) func() {
	return func() {
		openCmd := ""
		if runtime.GOOS == "windows" {
			openCmd = "explorer"
		} else if runtime.GOOS == "darwin" {
			openCmd = "open"
		} else {
			openCmd = "xdg-open"
		}

		systray.SetIcon(icon)
		if runtime.GOOS != "darwin" {
			systray.SetTitle("Sharemount")
		}
		systray.SetTooltip("Sharemount")

		mStatus := systray.AddMenuItem("Checking service...", "")
		mStatus.Disable()
		systray.AddSeparator()

		mOpenShares := systray.AddMenuItem("Open Shares", "Open the mount root folder")
		mMountAll := systray.AddMenuItem("Mount All", "Mount all auto-mount connections")
		mUnmountAll := systray.AddMenuItem("Unmount All", "Unmount every mounted share")
		systray.AddSeparator()

		mEditConfig := systray.AddMenuItem("Edit Config", "Edit the config file")
		mReloadConfig := systray.AddMenuItem("Reload", "Reload settings from disk")
		mOpenLog := systray.AddMenuItem("View Log", "View the service log file")

		if cfg.DebugLogging() {
			systray.AddSeparator()
		}
		mOpenDataDir := systray.AddMenuItem("Data (Debug)", "Open the service data directory")
		mOpenDataDir.Hide()
		if cfg.DebugLogging() {
			mOpenDataDir.Show()
		}

		systray.AddSeparator()
		mVersion := systray.AddMenuItem("Version "+config.AppVersion, "")
		mVersion.Disable()
		mAbout := systray.AddMenuItem("About Sharemount", "")

		systray.AddSeparator()
		mQuit := systray.AddMenuItem("Quit", "Quit and stop the Sharemount service")

		go watchStatus(cfg, mStatus)

		go func() {
			for {
				select {
				case <-mOpenShares.ClickedCh:
					root := cfg.MountRoot(pl.DefaultMountRoot())
					err := exec.Command(openCmd, root).Start()
					if err != nil {
						log.Error().Err(err).Msg("failed to open mount root")
					}
				case <-mMountAll.ClickedCh:
					params, _ := json.Marshal(&models.AutoMountTriggerParams{Trigger: "tray"})
					_, err := client.LocalClient(
						context.Background(), cfg, models.MethodAutoMount, string(params))
					if err != nil {
						log.Error().Err(err).Msg("failed to mount all")
					}
				case <-mUnmountAll.ClickedCh:
					_, err := client.LocalClient(
						context.Background(), cfg, models.MethodUnmountAll, "")
					if err != nil {
						log.Error().Err(err).Msg("failed to unmount all")
					}
				case <-mOpenLog.ClickedCh:
					err := exec.Command(openCmd, filepath.Join(pl.Settings().TempDir, config.LogFile)).Start()
					if err != nil {
						log.Error().Err(err).Msg("failed to open log file")
					}
				case <-mEditConfig.ClickedCh:
					err := exec.Command(openCmd, filepath.Join(pl.Settings().ConfigDir, config.CfgFile)).Start()
					if err != nil {
						log.Error().Err(err).Msg("failed to open config file")
					}
				case <-mReloadConfig.ClickedCh:
					_, err := client.LocalClient(
						context.Background(), cfg, models.MethodSettingsReload, "")
					if err != nil {
						log.Error().Err(err).Msg("failed to reload config")
					} else {
						log.Info().Msg("reloaded config")
					}
				case <-mOpenDataDir.ClickedCh:
					err := exec.Command(openCmd, pl.Settings().DataDir).Start()
					if err != nil {
						log.Error().Err(err).Msg("failed to open data dir")
					}
				case <-mAbout.ClickedCh:
					msg := "Sharemount\n" +
						"Version v%s\n\n" +
						"© %d Sharemount Project Contributors\n" +
						"License: GPLv3"
					dialog.Message(msg, config.AppVersion, time.Now().Year()).Title("About Sharemount").Info()
				case <-mQuit.ClickedCh:
					systray.Quit()
				}
			}
		}()
	}
}

func Run(
	cfg *config.Instance,
	pl platforms.Platform,
	icon []byte,
	exit func(),
) {
	systray.Run(systrayOnReady(cfg, pl, icon), exit)
}

// Quit exits the tray loop and fires the exit callback passed to Run.
func Quit() {
	systray.Quit()
}
