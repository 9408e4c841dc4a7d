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

// Package service assembles and runs the core: state, database, keychain,
// mount backend, coordinator, auto-mounter, network watcher, health
// monitor and the local API server.
package service

import (
	"context"
	"fmt"
	"os"

	"github.com/ShareMountProject/sharemount-core/pkg/api"
	"github.com/ShareMountProject/sharemount-core/pkg/api/models/requests"
	"github.com/ShareMountProject/sharemount-core/pkg/api/notifications"
	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/database/userdb"
	"github.com/ShareMountProject/sharemount-core/pkg/helpers"
	"github.com/ShareMountProject/sharemount-core/pkg/helpers/command"
	"github.com/ShareMountProject/sharemount-core/pkg/keychain"
	"github.com/ShareMountProject/sharemount-core/pkg/platforms"
	"github.com/ShareMountProject/sharemount-core/pkg/service/broker"
	"github.com/ShareMountProject/sharemount-core/pkg/service/mounter"
	"github.com/ShareMountProject/sharemount-core/pkg/service/netwatch"
	"github.com/ShareMountProject/sharemount-core/pkg/service/state"
	"github.com/ShareMountProject/sharemount-core/pkg/smb"
	"github.com/rs/zerolog/log"
)

func setupEnvironment(pl platforms.Platform, cfg *config.Instance) error {
	log.Info().Msg("creating platform directories")
	dirs := []string{
		helpers.ConfigDir(pl),
		helpers.DataDir(pl),
		pl.Settings().TempDir,
		cfg.MountRoot(pl.DefaultMountRoot()),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func openUserDB(ctx context.Context, pl platforms.Platform) (*userdb.UserDB, error) {
	log.Debug().Msg("opening connections database")
	db, err := userdb.OpenUserDB(ctx, pl)
	if err != nil {
		return nil, fmt.Errorf("failed to open connections database: %w", err)
	}

	log.Debug().Msg("running connections database migrations")
	if err := db.MigrateUp(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error migrating connections database: %w", err)
	}
	return db, nil
}

// Start brings the whole service up and returns a stop function that shuts
// it down and blocks until cleanup has finished.
func Start(
	pl platforms.Platform,
	cfg *config.Instance,
) (stop func() error, done <-chan struct{}, err error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	st, ns := state.NewState(pl)

	notifBroker := broker.NewBroker(st.GetContext(), ns)
	notifBroker.Start()

	if err := setupEnvironment(pl, cfg); err != nil {
		log.Error().Err(err).Msg("error setting up environment")
		st.StopService()
		return nil, nil, err
	}

	db, err := openUserDB(st.GetContext(), pl)
	if err != nil {
		log.Error().Err(err).Msg("error opening database")
		st.StopService()
		return nil, nil, err
	}

	executor := &command.RealExecutor{}
	keys := keychain.NewSecurityStore(executor)
	backend := smb.NewBackend(cfg, pl, executor, nil)
	coord := mounter.NewCoordinator(st, backend)
	autoMounter := mounter.NewAutoMounter(st, cfg, db, keys, coord, backend)

	log.Info().Msg("starting network watcher")
	watcher := netwatch.NewWatcher(st, cfg, netwatch.NewStatusProber(cfg, executor), netwatch.Hooks{
		TriggerAutoMount: func(ctx context.Context, trigger string) {
			go autoMounter.AutoMountConnections(ctx, trigger)
		},
		CleanupStaleMounts: func(ctx context.Context) {
			autoMounter.CleanupAllStaleMounts(ctx)
		},
		RemountConnection: autoMounter.RemountConnection,
	}, nil)
	watcher.Start()

	log.Info().Msg("starting health monitor")
	health := mounter.NewHealthMonitor(st, cfg, db, backend, watcher, nil)
	health.Start()

	ejects := mounter.NewEjectWatcher(st, health,
		cfg.MountRoot(pl.DefaultMountRoot()), "/Volumes")
	if err := ejects.Start(); err != nil {
		log.Warn().Err(err).Msg("volume event watcher unavailable, relying on health ticker")
	}

	log.Info().Msg("starting API server")
	apiNotifications, _ := notifBroker.Subscribe(100)
	go api.Start(requests.RequestEnv{
		Platform:    pl,
		Config:      cfg,
		State:       st,
		Database:    db,
		Keychain:    keys,
		Backend:     backend,
		Coordinator: coord,
		AutoMounter: autoMounter,
		Watcher:     watcher,
	}, apiNotifications)

	// leftovers from an unclean shutdown are swept before the first
	// auto-mount so they don't register as conflicts
	go func() {
		ctx := st.GetContext()
		autoMounter.CleanupAllStaleMounts(ctx)
		autoMounter.AutoMountConnections(ctx, "startup")
	}()

	notifications.Running(st.Notifications)
	log.Info().Msg("service fully initialized")

	doneCh := make(chan struct{})
	go func() {
		<-st.GetContext().Done()
		log.Info().Msg("service context cancelled, running cleanup")

		notifBroker.Stop()
		if closeErr := db.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing database")
		}

		log.Info().Msg("service cleanup completed")
		close(doneCh)
	}()

	stop = func() error {
		st.StopService()
		<-doneCh
		return nil
	}
	return stop, doneCh, nil
}
