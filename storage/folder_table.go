// Foldersync - Synced folder reconciliation for QEMU guests.
// Copyright (c) 2023 The Foldersync Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const (
	sqlSelectFolders = `SELECT name, host_path, updated_at FROM shared_folders
		WHERE machine_id = ? ORDER BY seq`

	sqlNextSeq = `SELECT COALESCE(MAX(seq), 0) + 1 FROM shared_folders WHERE machine_id = ?`

	// Rows keep their position on update. Unchanged rows are not touched.
	sqlUpsertFolder = `INSERT INTO shared_folders (machine_id, name, host_path, seq, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(machine_id, name) DO UPDATE SET
		 host_path = excluded.host_path,
		 updated_at = excluded.updated_at
		WHERE shared_folders.host_path <> excluded.host_path`

	sqlDeleteFolder = `DELETE FROM shared_folders WHERE machine_id = ? AND name = ?`

	sqlClearFolders = `DELETE FROM shared_folders WHERE machine_id = ?`
)

type FolderEntry struct {
	Name      string
	HostPath  string
	UpdatedAt time.Time
}

// FolderTable keeps the shared folder tables of all machines in a single
// SQLite database.
type FolderTable struct {
	logger *slog.Logger

	db      *sql.DB
	nowFunc func() time.Time
}

func OpenFolderTable(ctx context.Context, logger *slog.Logger, dbPath string) (*FolderTable, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open database '%v'", dbPath)
	}

	// Sole writer.
	db.SetMaxOpenConns(1)

	err = runMigrations(ctx, db, logger)
	if err != nil {
		return nil, multierr.Combine(err, errors.Wrap(db.Close(), "close database"))
	}

	logger.Debug("Opened folder table", "path", dbPath)

	return &FolderTable{
		logger: logger,

		db:      db,
		nowFunc: time.Now,
	}, nil
}

func (ft *FolderTable) Close() error {
	return ft.db.Close()
}

// Share upserts the entries in a single transaction. New names are
// appended after the existing ones.
func (ft *FolderTable) Share(ctx context.Context, machineID string, entries []FolderEntry) error {
	if machineID == "" {
		return fmt.Errorf("empty machine id")
	}

	tx, err := ft.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}

	// No-op after a successful commit.
	defer func() { _ = tx.Rollback() }()

	var seq int64
	err = tx.QueryRowContext(ctx, sqlNextSeq, machineID).Scan(&seq)
	if err != nil {
		return errors.Wrap(err, "query next seq")
	}

	now := ft.nowFunc().UnixNano()

	for _, e := range entries {
		_, err = tx.ExecContext(ctx, sqlUpsertFolder, machineID, e.Name, e.HostPath, seq, now)
		if err != nil {
			return errors.Wrapf(err, "upsert folder '%v'", e.Name)
		}

		seq++
	}

	err = tx.Commit()
	if err != nil {
		return errors.Wrap(err, "commit tx")
	}

	ft.logger.Debug("Shared folders", "machine-id", machineID, "count", len(entries))

	return nil
}

func (ft *FolderTable) Read(ctx context.Context, machineID string) ([]FolderEntry, error) {
	rows, err := ft.db.QueryContext(ctx, sqlSelectFolders, machineID)
	if err != nil {
		return nil, errors.Wrap(err, "query folders")
	}

	defer func() { _ = rows.Close() }()

	var ret []FolderEntry

	for rows.Next() {
		var (
			e         FolderEntry
			updatedAt int64
		)

		err = rows.Scan(&e.Name, &e.HostPath, &updatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "scan folder row")
		}

		e.UpdatedAt = time.Unix(0, updatedAt)
		ret = append(ret, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, errors.Wrap(err, "iterate folder rows")
	}

	return ret, nil
}

// Unshare removes the named entries. Unknown names are ignored.
func (ft *FolderTable) Unshare(ctx context.Context, machineID string, names []string) error {
	tx, err := ft.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}

	defer func() { _ = tx.Rollback() }()

	var removed int64

	for _, name := range names {
		res, err := tx.ExecContext(ctx, sqlDeleteFolder, machineID, name)
		if err != nil {
			return errors.Wrapf(err, "delete folder '%v'", name)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "get rows affected")
		}

		removed += n
	}

	err = tx.Commit()
	if err != nil {
		return errors.Wrap(err, "commit tx")
	}

	ft.logger.Debug("Unshared folders", "machine-id", machineID, "requested", len(names), "removed", removed)

	return nil
}

func (ft *FolderTable) Clear(ctx context.Context, machineID string) error {
	res, err := ft.db.ExecContext(ctx, sqlClearFolders, machineID)
	if err != nil {
		return errors.Wrap(err, "delete machine folders")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "get rows affected")
	}

	ft.logger.Debug("Cleared shared folders", "machine-id", machineID, "removed", n)

	return nil
}
