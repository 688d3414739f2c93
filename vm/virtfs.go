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
	"path/filepath"
	"strings"

	"github.com/AlexSSD7/foldersync/constants"
	"github.com/AlexSSD7/foldersync/osspecifics"
	"github.com/AlexSSD7/foldersync/qemucli"
	"github.com/AlexSSD7/foldersync/storage"
	"github.com/AlexSSD7/foldersync/utils"
	"github.com/pkg/errors"
)

func cleanQEMUPath(s string) string {
	path := filepath.Clean(s)
	if osspecifics.IsWindows() {
		// QEMU doesn't work well with Windows backslashes, so we're replacing them to forward slashes
		// that work perfectly fine.
		path = strings.ReplaceAll(path, "\\", "/")
	}

	return path
}

// VirtFSArgs renders the machine's shared folder table as QEMU options.
func (d *FolderDriver) VirtFSArgs(ctx context.Context) ([]qemucli.Option, error) {
	entries, err := d.table.Read(ctx, d.machineID)
	if err != nil {
		return nil, errors.Wrap(err, "read folder table")
	}

	return buildVirtFSOptions(entries)
}

func buildVirtFSOptions(entries []storage.FolderEntry) ([]qemucli.Option, error) {
	opts := make([]qemucli.Option, 0, len(entries)*2)

	for i, e := range entries {
		fsdevID := "fsdev" + utils.IntToStr(i)
		hostPath := cleanQEMUPath(e.HostPath)

		fsdev, err := qemucli.NewOption("fsdev",
			qemucli.Prop{Name: "local"},
			qemucli.Prop{Name: "id", Value: fsdevID},
			qemucli.Prop{Name: "path", Value: hostPath},
			qemucli.Prop{Name: "security_model", Value: constants.NinePSecurityModel},
		)
		if err != nil {
			return nil, errors.Wrapf(err, "create fsdev option (path '%v')", hostPath)
		}

		device, err := qemucli.NewOption("device",
			qemucli.Prop{Name: "driver", Value: "virtio-9p-pci"},
			qemucli.Prop{Name: "fsdev", Value: fsdevID},
			qemucli.Prop{Name: "mount_tag", Value: e.Name},
		)
		if err != nil {
			return nil, errors.Wrapf(err, "create device option (mount tag '%v')", e.Name)
		}

		opts = append(opts, fsdev, device)
	}

	return opts, nil
}
