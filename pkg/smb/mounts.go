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
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// SystemMount is one SMB entry from the OS mount table. ServerPath is the
// raw server identifier as the kernel recorded it, which may carry a
// user@ prefix (e.g. "alice@nas.local/docs").
type SystemMount struct {
	ServerPath string
	MountPoint string
}

// CleanupResult collects the outcome of a stale mount sweep. Errors are
// carried as strings, never raised: cleanup runs on shutdown and disconnect
// paths where failing loudly would itself cause a hang.
type CleanupResult struct {
	Cleaned []string
	Errors  []string
}

// mount(8) lines look like:
//
//	//alice@nas.local/docs on /Users/alice/Shares/docs (smbfs, nodev, nosuid, mounted by alice)
var mountLineRe = regexp.MustCompile(`^//(\S+) on (.+) \((?:smbfs|cifs)[,)]`)

const detectMountsTimeout = 5 * time.Second

// DetectSystemMounts enumerates every SMB mount on the system, whether or
// not this service created it. Finder mounts and leftovers from previous
// instances show up here too.
func (b *Backend) DetectSystemMounts(ctx context.Context) ([]SystemMount, error) {
	listCtx, cancel := context.WithTimeout(ctx, detectMountsTimeout)
	defer cancel()

	out, err := b.cmd.Output(listCtx, "mount")
	if err != nil {
		if listCtx.Err() != nil {
			return nil, fmt.Errorf("mount table listing: %w", ErrTimeout)
		}
		return nil, fmt.Errorf("failed to list mounts: %w", err)
	}

	var mounts []SystemMount
	for line := range strings.Lines(string(out)) {
		m := mountLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		mounts = append(mounts, SystemMount{
			ServerPath: m[1],
			MountPoint: m[2],
		})
	}
	return mounts, nil
}

// DetectConflict reports a system-level SMB mount occupying the given share
// path, matching case-insensitively with and without an embedded user
// prefix on either side. Returns nil when the path is free.
func (b *Backend) DetectConflict(ctx context.Context, sharePath string) (*SystemMount, error) {
	mounts, err := b.DetectSystemMounts(ctx)
	if err != nil {
		return nil, err
	}

	for i := range mounts {
		if SamePath(mounts[i].ServerPath, sharePath) {
			return &mounts[i], nil
		}
	}
	return nil, nil
}

// CleanupStaleMounts ejects stale or conflicting SMB mounts. With a share
// path it targets only mounts conflicting with that path; with an empty
// path it sweeps every SMB mount sitting under the app's mount root, which
// after a restart or wake are by definition untracked leftovers. Volumes
// mounted under /Volumes belong to the volume manager and are ejected with
// diskutil; everything else gets plain-then-forced umount. Failures
// accumulate in the result, they are never fatal.
func (b *Backend) CleanupStaleMounts(ctx context.Context, sharePath string) CleanupResult {
	result := CleanupResult{}

	mounts, err := b.DetectSystemMounts(ctx)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	mountRoot := b.MountRoot()
	for i := range mounts {
		m := &mounts[i]

		if sharePath != "" {
			if !SamePath(m.ServerPath, sharePath) {
				continue
			}
		} else if !strings.HasPrefix(m.MountPoint, mountRoot+"/") {
			continue
		}

		if err := b.ejectMount(ctx, m); err != nil {
			log.Warn().Str("mountPoint", m.MountPoint).Err(err).Msg("stale mount cleanup failed")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", m.MountPoint, err))
			continue
		}
		log.Info().
			Str("serverPath", m.ServerPath).
			Str("mountPoint", m.MountPoint).
			Msg("cleaned up stale mount")
		result.Cleaned = append(result.Cleaned, m.MountPoint)
	}

	return result
}

func (b *Backend) ejectMount(ctx context.Context, m *SystemMount) error {
	if strings.HasPrefix(m.MountPoint, "/Volumes/") {
		ejectCtx, cancel := context.WithTimeout(ctx, b.cfg.UnmountTimeout())
		defer cancel()

		if err := b.cmd.Run(ejectCtx, "diskutil", "eject", m.MountPoint); err != nil {
			if ejectCtx.Err() != nil {
				return fmt.Errorf("diskutil eject: %w", ErrTimeout)
			}
			return fmt.Errorf("diskutil eject failed: %w", err)
		}
		return nil
	}

	return b.Unmount(ctx, m.MountPoint)
}

// CleanupOrphanedMountDirs removes empty directories under the mount root
// that no mount is attached to. Mount point directories survive unclean
// shutdowns and manual ejects; left in place they accumulate and confuse
// both users and conflict detection. Directories already removed externally
// count as success.
func (b *Backend) CleanupOrphanedMountDirs(ctx context.Context) []string {
	mountRoot := b.MountRoot()

	entries, err := afero.ReadDir(b.fs, mountRoot)
	if err != nil {
		// no mount root yet means nothing to clean
		return nil
	}

	mounts, err := b.DetectSystemMounts(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("skipping orphan cleanup, mount table unavailable")
		return nil
	}
	mounted := make(map[string]bool, len(mounts))
	for _, m := range mounts {
		mounted[m.MountPoint] = true
	}

	var cleaned []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(mountRoot, entry.Name())
		if mounted[dir] {
			continue
		}

		children, err := afero.ReadDir(b.fs, dir)
		if err != nil || len(children) > 0 {
			continue
		}

		if err := b.fs.Remove(dir); err != nil {
			log.Warn().Str("dir", dir).Err(err).Msg("failed to remove orphaned mount dir")
			continue
		}
		cleaned = append(cleaned, dir)
	}

	if len(cleaned) > 0 {
		log.Info().Int("count", len(cleaned)).Msg("removed orphaned mount directories")
	}
	return cleaned
}

// readProbeTimeout bounds the strict health check. A mount backed by a dead
// server makes directory reads hang for minutes; the probe goroutine is
// abandoned at the deadline rather than waited for.
const readProbeTimeout = 5 * time.Second

// ProbeMountReadable reports whether a mount point answers a directory
// listing within the probe deadline. False means the mount is present in
// the table but effectively dead.
func (b *Backend) ProbeMountReadable(ctx context.Context, mountPoint string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, readProbeTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := afero.ReadDir(b.fs, mountPoint)
		done <- err
	}()

	select {
	case err := <-done:
		return err == nil
	case <-probeCtx.Done():
		log.Warn().Str("mountPoint", mountPoint).Msg("mount read probe timed out")
		return false
	}
}
