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
	"errors"
	"path"
	"strings"
)

// Normalize reduces any accepted share path form to the canonical
// "host/share" identifier used for every equality comparison in the
// service. It strips the smb:// scheme, leading slashes and trailing
// slashes, and lowercases the result. An embedded user prefix is kept, so
// comparisons that must ignore it strip it with StripUserPrefix.
func Normalize(sharePath string) string {
	s := strings.TrimSpace(sharePath)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "smb://") {
		s = s[len("smb://"):]
	} else if strings.HasPrefix(lower, "cifs://") {
		s = s[len("cifs://"):]
	}
	s = strings.TrimLeft(s, "/")
	s = strings.TrimRight(s, "/")
	return strings.ToLower(s)
}

// StripUserPrefix removes an embedded "user@" prefix from a normalized
// share path. The OS mount table records paths as user@host/share while
// saved connections store host/share, and conflict detection must match the
// two forms.
func StripUserPrefix(sharePath string) string {
	host, rest, found := strings.Cut(sharePath, "/")
	if !found {
		host = sharePath
	}
	if at := strings.LastIndex(host, "@"); at >= 0 {
		host = host[at+1:]
	}
	if !found {
		return host
	}
	return host + "/" + rest
}

// SamePath reports whether two share paths refer to the same share,
// ignoring scheme, case and any embedded user prefix on either side.
func SamePath(a, b string) bool {
	return StripUserPrefix(Normalize(a)) == StripUserPrefix(Normalize(b))
}

// SplitSharePath splits a normalized share path into host and share
// components. The share component may itself contain a sub-path.
func SplitSharePath(sharePath string) (host, share string, err error) {
	norm := StripUserPrefix(Normalize(sharePath))
	host, share, found := strings.Cut(norm, "/")
	if !found || host == "" || share == "" {
		return "", "", errors.New("share path must be in host/share form")
	}
	return host, share, nil
}

// MountDirName returns the directory name a share is mounted under, derived
// from the last path element of the share.
func MountDirName(sharePath string) string {
	norm := StripUserPrefix(Normalize(sharePath))
	return path.Base(norm)
}
