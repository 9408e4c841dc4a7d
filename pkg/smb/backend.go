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

// Package smb talks to the macOS mount facility. It issues mount and
// unmount commands, reconciles against the system mount table, and probes
// server reachability. Nothing in here holds service state; every operation
// takes a context and reports a classified error.
package smb

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/ShareMountProject/sharemount-core/pkg/config"
	"github.com/ShareMountProject/sharemount-core/pkg/helpers/command"
	"github.com/ShareMountProject/sharemount-core/pkg/platforms"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

type Backend struct {
	cmd command.Executor
	cfg *config.Instance
	pl  platforms.Platform
	fs  afero.Fs
}

// NewBackend creates a mount backend. A nil executor or filesystem selects
// the real implementations; tests inject fakes.
func NewBackend(
	cfg *config.Instance,
	pl platforms.Platform,
	cmd command.Executor,
	fs afero.Fs,
) *Backend {
	if cmd == nil {
		cmd = &command.RealExecutor{}
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Backend{cfg: cfg, pl: pl, cmd: cmd, fs: fs}
}

// MountRoot returns the directory shares are mounted under.
func (b *Backend) MountRoot() string {
	return b.cfg.MountRoot(b.pl.DefaultMountRoot())
}

// MountPointFor returns the deterministic mount point a share path resolves
// to, whether or not it is currently mounted.
func (b *Backend) MountPointFor(sharePath string) string {
	return filepath.Join(b.MountRoot(), MountDirName(sharePath))
}

// IsMounted checks the OS mount table for an exact mount point entry. A
// mount point that no longer exists on disk is simply not mounted, never an
// error.
func (b *Backend) IsMounted(ctx context.Context, mountPoint string) bool {
	mounts, err := b.DetectSystemMounts(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read mount table")
		return false
	}
	for _, m := range mounts {
		if m.MountPoint == mountPoint {
			return true
		}
	}
	return false
}

// Mount attaches a share below the mount root and returns the mount point.
// The invocation is bounded by the configured mount timeout; the spawned
// mount_smbfs is killed when the deadline passes. Errors come back
// classified (ErrTimeout, ErrAuthFailed, ErrHostUnreachable, ErrConflict,
// ErrNotFound) so callers can decide between re-prompt, retry and give-up.
func (b *Backend) Mount(ctx context.Context, sharePath, username, password string) (string, error) {
	host, share, err := SplitSharePath(sharePath)
	if err != nil {
		return "", err
	}

	mountPoint := b.MountPointFor(sharePath)
	if b.IsMounted(ctx, mountPoint) {
		return "", fmt.Errorf("%s: %w", mountPoint, ErrConflict)
	}

	if err := b.fs.MkdirAll(mountPoint, 0o750); err != nil {
		return "", fmt.Errorf("failed to create mount point: %w", err)
	}

	// mount_smbfs takes credentials URL-encoded inside the share URL. -N
	// suppresses the interactive password prompt so a bad password fails
	// instead of hanging the process on a tty read.
	target := fmt.Sprintf("//%s@%s/%s", url.UserPassword(username, password).String(), host, share)

	mountCtx, cancel := context.WithTimeout(ctx, b.cfg.MountTimeout())
	defer cancel()

	start := time.Now()
	_, err = b.cmd.Output(mountCtx, "mount_smbfs", "-N", target, mountPoint)
	if err != nil {
		classified := classifyMountError(mountCtx, err)
		log.Warn().
			Str("share", Normalize(sharePath)).
			Dur("elapsed", time.Since(start)).
			Err(classified).
			Msg("mount failed")
		return "", classified
	}

	// trust but verify: only report success if the mount table agrees
	if !b.IsMounted(ctx, mountPoint) {
		return "", fmt.Errorf("mount_smbfs succeeded but %s is not in the mount table", mountPoint)
	}

	log.Info().
		Str("share", Normalize(sharePath)).
		Str("mountPoint", mountPoint).
		Dur("elapsed", time.Since(start)).
		Msg("mounted share")

	return mountPoint, nil
}

// Unmount detaches a mount point. It tries a plain umount first and
// escalates to umount -f, then diskutil unmount force. The whole pass is
// bounded by the configured unmount timeout and never prompts for
// privileges. Unmount is best effort: a mount point that is already gone
// counts as success.
func (b *Backend) Unmount(ctx context.Context, mountPoint string) error {
	if !b.IsMounted(ctx, mountPoint) {
		return nil
	}

	unmountCtx, cancel := context.WithTimeout(ctx, b.cfg.UnmountTimeout())
	defer cancel()

	attempts := [][]string{
		{"umount", mountPoint},
		{"umount", "-f", mountPoint},
		{"diskutil", "unmount", "force", mountPoint},
	}

	var lastErr error
	for _, args := range attempts {
		if unmountCtx.Err() != nil {
			break
		}
		if err := b.cmd.Run(unmountCtx, args[0], args[1:]...); err != nil {
			lastErr = err
			continue
		}
		log.Info().Str("mountPoint", mountPoint).Str("command", args[0]).Msg("unmounted")
		return nil
	}

	if unmountCtx.Err() != nil {
		return fmt.Errorf("unmount %s: %w", mountPoint, ErrTimeout)
	}

	// the commands failed but the mount may have vanished underneath them
	if !b.IsMounted(ctx, mountPoint) {
		return nil
	}

	return fmt.Errorf("unmount %s failed: %w", mountPoint, lastErr)
}
