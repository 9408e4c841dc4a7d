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

package keychain

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ShareMountProject/sharemount-core/pkg/helpers/command"
	"github.com/ShareMountProject/sharemount-core/pkg/smb"
	"github.com/rs/zerolog/log"
)

const (
	serviceName = "sharemount"

	// legacyServicePrefix keyed entries by share path before connections
	// had stable IDs.
	legacyServicePrefix = "Sharemount-"

	// security(1) can block on an unlock prompt; a bounded call degrades
	// that to a missing credential instead of a hang.
	securityTimeout = 5 * time.Second
)

// SecurityStore implements Store with the macOS security(1) tool.
type SecurityStore struct {
	cmd command.Executor
}

func NewSecurityStore(cmd command.Executor) *SecurityStore {
	if cmd == nil {
		cmd = &command.RealExecutor{}
	}
	return &SecurityStore{cmd: cmd}
}

// LegacyServiceName derives the pre-ID keychain service name for a share
// path. Exposed so migrations and tests agree on the exact form.
func LegacyServiceName(sharePath string) string {
	return legacyServicePrefix + smb.Normalize(sharePath)
}

func (s *SecurityStore) Get(ctx context.Context, id string) (string, error) {
	return s.find(ctx, serviceName, id)
}

func (s *SecurityStore) GetLegacy(ctx context.Context, sharePath string) (string, error) {
	// legacy entries were stored with the account left empty
	return s.find(ctx, LegacyServiceName(sharePath), "")
}

func (s *SecurityStore) find(ctx context.Context, service, account string) (string, error) {
	findCtx, cancel := context.WithTimeout(ctx, securityTimeout)
	defer cancel()

	args := []string{"find-generic-password", "-s", service}
	if account != "" {
		args = append(args, "-a", account)
	}
	args = append(args, "-w")

	out, err := s.cmd.Output(findCtx, "security", args...)
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("service %s: %w", service, ErrCredentialNotFound)
		}
		return "", fmt.Errorf("keychain lookup failed: %w", err)
	}

	// -w prints the password followed by a newline
	return strings.TrimRight(string(out), "\n"), nil
}

func (s *SecurityStore) Set(ctx context.Context, id, password string) error {
	setCtx, cancel := context.WithTimeout(ctx, securityTimeout)
	defer cancel()

	// -U updates in place when the item already exists
	_, err := s.cmd.Output(setCtx, "security", "add-generic-password",
		"-U", "-s", serviceName, "-a", id, "-w", password)
	if err != nil {
		return fmt.Errorf("keychain store failed: %w", err)
	}
	return nil
}

func (s *SecurityStore) Delete(ctx context.Context, id string) error {
	delCtx, cancel := context.WithTimeout(ctx, securityTimeout)
	defer cancel()

	_, err := s.cmd.Output(delCtx, "security", "delete-generic-password",
		"-s", serviceName, "-a", id)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("keychain delete failed: %w", err)
	}
	return nil
}

// isNotFound matches the errSecItemNotFound report from security(1), which
// only surfaces through stderr text and exit code 44.
func isNotFound(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	if exitErr.ProcessState != nil && exitErr.ExitCode() == 44 {
		return true
	}
	return strings.Contains(strings.ToLower(string(exitErr.Stderr)), "could not be found")
}

// GetWithFallback resolves a connection's password, trying the ID keyed
// entry first and falling back to the legacy share-path entry. When the
// legacy entry hits, the credential is re-stored under the ID so the next
// lookup takes the primary path.
func GetWithFallback(ctx context.Context, store Store, id, sharePath string) (string, error) {
	password, err := store.Get(ctx, id)
	if err == nil {
		return password, nil
	}
	if !errors.Is(err, ErrCredentialNotFound) {
		return "", err
	}

	password, legacyErr := store.GetLegacy(ctx, sharePath)
	if legacyErr != nil {
		// report the primary miss, the legacy path is best effort
		return "", err
	}

	if setErr := store.Set(ctx, id, password); setErr != nil {
		log.Warn().Err(setErr).Msg("failed to migrate legacy keychain entry")
	}
	return password, nil
}
