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

package vm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AlexSSD7/foldersync/qemucli"
	"github.com/AlexSSD7/foldersync/storage"
	"github.com/AlexSSD7/foldersync/synced"
	"github.com/pkg/errors"
)

// FolderDriver is the hypervisor side of shared folders for a single
// QEMU machine. Declarations are persisted in the folder table and turned
// into virtio-9p devices on the next boot. Names too long to be a mount
// tag are stored shortened, see mountTag.
type FolderDriver struct {
	logger *slog.Logger

	table     *storage.FolderTable
	machineID string
}

var _ synced.Driver = (*FolderDriver)(nil)

func NewFolderDriver(logger *slog.Logger, table *storage.FolderTable, machineID string) *FolderDriver {
	return &FolderDriver{
		logger: logger,

		table:     table,
		machineID: machineID,
	}
}

func (d *FolderDriver) ShareFolders(ctx context.Context, decls []synced.Declaration) error {
	if d.machineID == "" {
		return ErrNotProvisioned
	}

	entries := make([]storage.FolderEntry, 0, len(decls))

	for i, decl := range decls {
		err := validateDeclaration(decl)
		if err != nil {
			return errors.Wrapf(err, "validate declaration #%v", i)
		}

		tag := mountTag(decl.Name)
		if tag != decl.Name {
			d.logger.Debug("Shortened mount tag", "name", decl.Name, "mount-tag", tag)
		}

		entries = append(entries, storage.FolderEntry{
			Name:     tag,
			HostPath: decl.HostPath,
		})
	}

	err := d.table.Share(ctx, d.machineID, entries)
	if err != nil {
		return errors.Wrap(err, "share in folder table")
	}

	d.logger.Debug("Shared folders", "count", len(entries))

	return nil
}

func (d *FolderDriver) ReadSharedFolders(ctx context.Context) ([]synced.Declaration, error) {
	entries, err := d.table.Read(ctx, d.machineID)
	if err != nil {
		return nil, errors.Wrap(err, "read folder table")
	}

	ret := make([]synced.Declaration, 0, len(entries))
	for _, e := range entries {
		ret = append(ret, synced.Declaration{
			Name:     e.Name,
			HostPath: e.HostPath,
		})
	}

	return ret, nil
}

func (d *FolderDriver) UnshareFolders(ctx context.Context, names []string) error {
	tags := make([]string, len(names))
	for i, name := range names {
		tags[i] = mountTag(name)
	}

	err := d.table.Unshare(ctx, d.machineID, tags)
	if err != nil {
		return errors.Wrap(err, "unshare in folder table")
	}

	return nil
}

func (d *FolderDriver) ClearSharedFolders(ctx context.Context) error {
	err := d.table.Clear(ctx, d.machineID)
	if err != nil {
		return errors.Wrap(err, "clear folder table")
	}

	d.logger.Info("Cleared shared folders")

	return nil
}

// Entries returns the raw table rows, including update times.
func (d *FolderDriver) Entries(ctx context.Context) ([]storage.FolderEntry, error) {
	return d.table.Read(ctx, d.machineID)
}

func validateDeclaration(decl synced.Declaration) error {
	if decl.Name == "" {
		return fmt.Errorf("empty name")
	}

	if decl.HostPath == "" {
		return fmt.Errorf("empty host path for '%v'", decl.Name)
	}

	// Both end up in QEMU property lists.
	err := qemucli.CheckPropValue(decl.Name)
	if err != nil {
		return errors.Wrapf(err, "validate name '%v'", decl.Name)
	}

	err = qemucli.CheckPropValue(decl.HostPath)
	if err != nil {
		return errors.Wrapf(err, "validate host path '%v'", decl.HostPath)
	}

	return nil
}
