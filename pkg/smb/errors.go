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
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Callers branch on these with errors.Is. Auth failures must never be
// retried silently, timeouts and unreachable hosts are transient, conflicts
// are resolved by cleanup and retried once.
var (
	ErrTimeout         = errors.New("operation timed out")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrHostUnreachable = errors.New("host unreachable")
	ErrConflict        = errors.New("share already mounted")
	ErrNotFound        = errors.New("not found")
)

// commandStderr pulls captured stderr out of an exec error, if any.
func commandStderr(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(exitErr.Stderr)
	}
	return ""
}

// classifyMountError maps a mount_smbfs failure onto the error taxonomy.
// mount_smbfs reports almost everything through stderr text, so matching on
// message fragments is the only classification mechanism available.
func classifyMountError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("mount: %w", ErrTimeout)
	}

	stderr := strings.ToLower(commandStderr(err))
	switch {
	case strings.Contains(stderr, "authentication error"),
		strings.Contains(stderr, "permission denied"),
		strings.Contains(stderr, "login failed"):
		return fmt.Errorf("mount: %w", ErrAuthFailed)
	case strings.Contains(stderr, "no route to host"),
		strings.Contains(stderr, "could not connect"),
		strings.Contains(stderr, "connection refused"),
		strings.Contains(stderr, "unable to connect"),
		strings.Contains(stderr, "server connection failed"),
		strings.Contains(stderr, "hostname nor servname"):
		return fmt.Errorf("mount: %w", ErrHostUnreachable)
	case strings.Contains(stderr, "file exists"),
		strings.Contains(stderr, "device busy"),
		strings.Contains(stderr, "resource busy"):
		return fmt.Errorf("mount: %w", ErrConflict)
	case strings.Contains(stderr, "no such file"),
		strings.Contains(stderr, "share not found"):
		return fmt.Errorf("mount: %w", ErrNotFound)
	default:
		return fmt.Errorf("mount failed: %w", err)
	}
}

// UserMessage converts a classified mount error into something fit for
// direct display.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "The server did not respond in time."
	case errors.Is(err, ErrAuthFailed):
		return "The username or password was rejected."
	case errors.Is(err, ErrHostUnreachable):
		return "The server could not be reached."
	case errors.Is(err, ErrConflict):
		return "The share is already mounted by another application."
	case errors.Is(err, ErrNotFound):
		return "The share does not exist on the server."
	default:
		return "Mounting failed: " + err.Error()
	}
}
