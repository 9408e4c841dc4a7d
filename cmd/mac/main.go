/*
Sharemount Core
Copyright (c) 2026 The Sharemount Project Contributors.

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

//go:build darwin

package main

import (
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ShareMountProject/sharemount-core/pkg/cli"
	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/platforms/mac"
	"github.com/ShareMountProject/sharemount-core/pkg/service"
	"github.com/ShareMountProject/sharemount-core/pkg/service/daemon"
	"github.com/ShareMountProject/sharemount-core/pkg/ui/systray"
	"github.com/rs/zerolog/log"
)

//go:embed app/systrayicon.png
var systrayIcon []byte

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	if os.Geteuid() == 0 {
		return errors.New("sharemount cannot be run as root")
	}

	pl := &mac.Platform{}
	flags := cli.SetupFlags()

	serviceFlag := flag.String(
		"service",
		"",
		"manage the Sharemount service (start|stop|restart|status)",
	)
	daemonMode := flag.Bool(
		"daemon",
		false,
		"run the service in the foreground with no UI",
	)

	flags.Pre(pl)

	var logWriters []io.Writer
	if *daemonMode {
		logWriters = []io.Writer{os.Stderr}
	}

	cfg := cli.Setup(
		pl,
		config.BaseDefaults,
		logWriters,
	)

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %v\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	svc, err := daemon.NewService(daemon.ServiceArgs{
		Entry: func() (func() error, <-chan struct{}, error) {
			return service.Start(pl, cfg)
		},
		Platform: pl,
	})
	if err != nil {
		log.Error().Err(err).Msg("error creating service")
		return fmt.Errorf("error creating service: %w", err)
	}
	if err := svc.ServiceHandler(serviceFlag); err != nil {
		return err
	}

	flags.Post(cfg, pl)

	sigs := make(chan os.Signal, 1)
	defer close(sigs)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	if *daemonMode {
		stopSvc, done, startErr := service.Start(pl, cfg)
		if startErr != nil {
			log.Error().Err(startErr).Msg("error starting service")
			return fmt.Errorf("error starting service: %w", startErr)
		}
		log.Info().Msg("started in daemon mode")

		select {
		case <-sigs:
			if stopErr := stopSvc(); stopErr != nil {
				log.Error().Err(stopErr).Msg("error stopping service")
			}
		case <-done:
		}
		return nil
	}

	// tray mode runs the service in a detached subprocess so the UI can
	// be closed and reopened without interrupting mounts
	cleanup, err := daemon.SpawnDaemon(cfg)
	if err != nil {
		log.Error().Err(err).Msg("error spawning daemon")
		return fmt.Errorf("error spawning daemon: %w", err)
	}

	exit := make(chan bool, 1)
	defer close(exit)

	go func() {
		<-sigs
		systray.Quit()
	}()

	systray.Run(cfg, pl, systrayIcon, func() {
		exit <- true
	})

	<-exit
	cleanup()
	return nil
}
