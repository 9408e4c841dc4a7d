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

package userdb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ShareMountProject/sharemount-core/pkg/database"
	"github.com/ShareMountProject/sharemount-core/pkg/smb"
	"github.com/google/uuid"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrDuplicateShare     = errors.New("connection for this share and user already exists")
)

const connectionColumns = "ID, Label, SharePath, Username, AutoMount, CreatedAt, LastUsed"

// canonicalSharePath reduces a share path to the form stored in the DB.
// The embedded user@ prefix is dropped so smb://alice@nas/docs and
// nas/docs name the same row; the username lives in its own column.
func canonicalSharePath(sharePath string) (string, error) {
	canon := smb.StripUserPrefix(smb.Normalize(sharePath))
	if _, _, err := smb.SplitSharePath(canon); err != nil {
		return "", fmt.Errorf("invalid share path %q: %w", sharePath, err)
	}
	return canon, nil
}

func scanConnection(row interface{ Scan(...any) error }) (*database.Connection, error) {
	var (
		conn      database.Connection
		createdAt int64
		lastUsed  sql.NullInt64
	)
	err := row.Scan(
		&conn.ID,
		&conn.Label,
		&conn.SharePath,
		&conn.Username,
		&conn.AutoMount,
		&createdAt,
		&lastUsed,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with query context
	}
	conn.CreatedAt = time.Unix(createdAt, 0)
	if lastUsed.Valid {
		t := time.Unix(lastUsed.Int64, 0)
		conn.LastUsed = &t
	}
	return &conn, nil
}

// AddConnection saves a new connection. The share path is canonicalized
// before storage so all later comparisons are plain string equality. The
// share path plus username pair is unique.
func (db *UserDB) AddConnection(label, sharePath, username string, autoMount bool) (*database.Connection, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}

	norm, err := canonicalSharePath(sharePath)
	if err != nil {
		return nil, err
	}

	conn := &database.Connection{
		ID:        uuid.New().String(),
		Label:     label,
		SharePath: norm,
		Username:  username,
		AutoMount: autoMount,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO Connections (ID, Label, SharePath, Username, AutoMount, CreatedAt, LastUsed)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
	`
	_, err = db.sql.ExecContext(db.ctx, query,
		conn.ID,
		conn.Label,
		conn.SharePath,
		conn.Username,
		conn.AutoMount,
		conn.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s as %s: %w", norm, username, ErrDuplicateShare)
		}
		return nil, fmt.Errorf("failed to insert connection: %w", err)
	}

	return conn, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint failed")
}

// GetConnection returns a saved connection by ID.
func (db *UserDB) GetConnection(id string) (*database.Connection, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}

	row := db.sql.QueryRowContext(db.ctx,
		"SELECT "+connectionColumns+" FROM Connections WHERE ID = ?", id)
	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrConnectionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query connection: %w", err)
	}
	return conn, nil
}

// FindConnection looks a connection up by its canonical share path and
// username, the pair the mount map is keyed against. The lookup path may
// carry an embedded user@ prefix; it is stripped before comparison.
func (db *UserDB) FindConnection(sharePath, username string) (*database.Connection, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}

	row := db.sql.QueryRowContext(db.ctx,
		"SELECT "+connectionColumns+" FROM Connections WHERE SharePath = ? AND Username = ?",
		smb.StripUserPrefix(smb.Normalize(sharePath)), username)
	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s as %s: %w", sharePath, username, ErrConnectionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query connection: %w", err)
	}
	return conn, nil
}

// ListConnections returns every saved connection ordered by label.
func (db *UserDB) ListConnections() ([]database.Connection, error) {
	return db.listConnections("SELECT " + connectionColumns +
		" FROM Connections ORDER BY Label COLLATE NOCASE")
}

// ListAutoMountConnections returns the connections that participate in
// auto-mount sweeps.
func (db *UserDB) ListAutoMountConnections() ([]database.Connection, error) {
	return db.listConnections("SELECT " + connectionColumns +
		" FROM Connections WHERE AutoMount = 1 ORDER BY Label COLLATE NOCASE")
}

func (db *UserDB) listConnections(query string) ([]database.Connection, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}

	rows, err := db.sql.QueryContext(db.ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var conns []database.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, *conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connections: %w", err)
	}
	return conns, nil
}

// UpdateConnection applies a partial update and reports exactly which
// fields changed. A changed share path or username invalidates any live
// mount, so those set NeedsRemount; label and auto-mount changes do not.
func (db *UserDB) UpdateConnection(id string, update database.ConnectionUpdate) (*database.UpdateResult, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}

	existing, err := db.GetConnection(id)
	if err != nil {
		return nil, err
	}

	result := &database.UpdateResult{}
	next := *existing

	if update.Label != nil && *update.Label != existing.Label {
		next.Label = *update.Label
		result.ChangedFields = append(result.ChangedFields, "label")
	}
	if update.SharePath != nil {
		norm, err := canonicalSharePath(*update.SharePath)
		if err != nil {
			return nil, err
		}
		if norm != existing.SharePath {
			next.SharePath = norm
			result.ChangedFields = append(result.ChangedFields, "sharePath")
			result.NeedsRemount = true
		}
	}
	if update.Username != nil && *update.Username != existing.Username {
		next.Username = *update.Username
		result.ChangedFields = append(result.ChangedFields, "username")
		result.NeedsRemount = true
	}
	if update.AutoMount != nil && *update.AutoMount != existing.AutoMount {
		next.AutoMount = *update.AutoMount
		result.ChangedFields = append(result.ChangedFields, "autoMount")
	}

	if len(result.ChangedFields) == 0 {
		return result, nil
	}

	_, err = db.sql.ExecContext(db.ctx, `
		UPDATE Connections
		SET Label = ?, SharePath = ?, Username = ?, AutoMount = ?
		WHERE ID = ?
	`, next.Label, next.SharePath, next.Username, next.AutoMount, id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s as %s: %w", next.SharePath, next.Username, ErrDuplicateShare)
		}
		return nil, fmt.Errorf("failed to update connection: %w", err)
	}

	return result, nil
}

// RemoveConnection deletes a saved connection. The caller is responsible
// for the best-effort purge of its keychain credential.
func (db *UserDB) RemoveConnection(id string) error {
	if db.sql == nil {
		return ErrNullSQL
	}

	result, err := db.sql.ExecContext(db.ctx, "DELETE FROM Connections WHERE ID = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", id, ErrConnectionNotFound)
	}
	return nil
}

// TouchConnection records a successful mount on the connection.
func (db *UserDB) TouchConnection(id string) error {
	if db.sql == nil {
		return ErrNullSQL
	}

	_, err := db.sql.ExecContext(db.ctx,
		"UPDATE Connections SET LastUsed = ? WHERE ID = ?", time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to touch connection: %w", err)
	}
	return nil
}
