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

package synced

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/AlexSSD7/foldersync/constants"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Coordinator reconciles folder declarations with the hypervisor
// shared folder table and the guest mount table. It holds no per-machine
// state, so one Coordinator may serve many machines concurrently as long
// as a single machine is not operated on from multiple goroutines.
type Coordinator struct {
	logger *slog.Logger

	driver     DriverFunc
	translator PathTranslator
}

func NewCoordinator(logger *slog.Logger, driver DriverFunc, translator PathTranslator) *Coordinator {
	return &Coordinator{
		logger: logger,

		driver:     driver,
		translator: translator,
	}
}

// Usable reports whether the machine can use hypervisor shared folders.
// With raiseErrors set, an unusable machine also yields an error wrapping
// ErrUnusable that explains why. A nil machine is always an error.
func (c *Coordinator) Usable(m *Machine, raiseErrors bool) (bool, error) {
	if m == nil {
		return false, errNilMachine
	}

	var reason string

	switch {
	case m.ProviderName != constants.ProviderName:
		reason = fmt.Sprintf("provider '%v' is not '%v'", m.ProviderName, constants.ProviderName)
	case !m.ProviderConfig.FunctionalSharedFolders:
		reason = "functional shared folders are disabled in the provider config"
	default:
		return true, nil
	}

	if raiseErrors {
		return false, errors.Wrap(ErrUnusable, reason)
	}

	return false, nil
}

func (c *Coordinator) Enable(ctx context.Context, m *Machine, folders Folders) error {
	err := m.validate()
	if err != nil {
		return err
	}

	lg := c.logger.With("machine", m.Name)
	driver := c.driver(m)

	hostPaths := make([]string, len(folders))
	decls := make([]Declaration, 0, len(folders))

	for i, f := range folders {
		hostPath, err := c.resolveHostPath(f.Spec)
		if err != nil {
			return errors.Wrapf(err, "resolve host path of folder '%v'", f.ID)
		}

		hostPaths[i] = hostPath
		decls = append(decls, Declaration{
			Name:     FriendlyName(f.ID),
			HostPath: hostPath,
		})
	}

	// Only unique host paths get declared. Folders sharing a host path
	// are still mounted below, all from the first declared name.
	decls = dedupByHostPath(decls)

	err = driver.ShareFolders(ctx, decls)
	if err != nil {
		return errors.Wrap(err, "share folders")
	}

	lg.Debug("Declared shared folders", "count", len(decls))

	order := mountOrder(folders)

	shared, err := driver.ReadSharedFolders(ctx)
	if err != nil {
		return errors.Wrap(err, "read shared folders")
	}

	table := NewTable(shared)

	// Guest-side shared folder services can override our mounts
	// and have to be configured first.
	if m.Guest.HasCapability(CapPrepareServices) {
		err = m.Guest.Invoke(ctx, CapPrepareServices)
		if err != nil {
			return errors.Wrap(err, "prepare synced folder services")
		}
	}

	m.UI.Output("Mounting shared folders...")

	for _, i := range order {
		f := folders[i]

		name, ok := table.NameFor(hostPaths[i])
		if !f.Spec.AutoMount() || !ok {
			if f.Spec.AutoMount() {
				lg.Debug("Host path is missing in the shared folder table", "id", f.ID, "host-path", hostPaths[i])
			}

			m.UI.Detail("Automounting disabled: " + f.Spec.HostPath)
			continue
		}

		m.UI.Detail(f.Spec.GuestPath + " => " + f.Spec.HostPath)

		spec := f.Spec
		if spec.Owner == "" {
			spec.Owner = m.SSHInfo.Username
		}
		if spec.Group == "" {
			spec.Group = m.SSHInfo.Username
		}

		err = m.Guest.Invoke(ctx, CapMountSharedFolder, name, spec.GuestPath, spec)
		if err != nil {
			return errors.Wrapf(err, "mount folder '%v' at '%v'", f.ID, spec.GuestPath)
		}

		lg.Debug("Mounted shared folder", "id", f.ID, "name", name, "guest-path", spec.GuestPath)
	}

	return nil
}

// Disable unmounts every folder and removes them from the hypervisor
// table. The table is cleaned up even when unmounting fails.
func (c *Coordinator) Disable(ctx context.Context, m *Machine, folders Folders) error {
	err := m.validate()
	if err != nil {
		return err
	}

	lg := c.logger.With("machine", m.Name)

	var unmountErr error

	if m.Guest.HasCapability(CapUnmountSharedFolder) {
		for _, f := range folders {
			err := m.Guest.Invoke(ctx, CapUnmountSharedFolder, f.Spec.GuestPath, f.Spec)
			if err != nil {
				lg.Warn("Failed to unmount shared folder", "id", f.ID, "guest-path", f.Spec.GuestPath, "error", err.Error())
				unmountErr = multierr.Append(unmountErr, errors.Wrapf(err, "unmount folder '%v'", f.ID))
			}
		}
	}

	err = c.driver(m).UnshareFolders(ctx, friendlyNames(folders))

	return multierr.Combine(unmountErr, errors.Wrap(err, "unshare folders"))
}

// Cleanup wipes the whole shared folder table of a provisioned machine.
func (c *Coordinator) Cleanup(ctx context.Context, m *Machine) error {
	if m == nil {
		return errNilMachine
	}

	if m.ID == "" {
		c.logger.Debug("Machine is not provisioned, nothing to clean up", "machine", m.Name)
		return nil
	}

	err := c.driver(m).ClearSharedFolders(ctx)
	if err != nil {
		return errors.Wrap(err, "clear shared folders")
	}

	return nil
}

func (c *Coordinator) resolveHostPath(spec FolderSpec) (string, error) {
	if spec.HostPathExact || c.translator == nil {
		return spec.HostPath, nil
	}

	return c.translator.Translate(spec.HostPath)
}

func dedupByHostPath(decls []Declaration) []Declaration {
	seen := make(map[string]struct{}, len(decls))
	ret := make([]Declaration, 0, len(decls))

	for _, d := range decls {
		if _, ok := seen[d.HostPath]; ok {
			continue
		}

		seen[d.HostPath] = struct{}{}
		ret = append(ret, d)
	}

	return ret
}

// mountOrder returns folder indices with short guest paths first, so
// parents get mounted before nested children. Folders without a guest
// path go last. Ties keep input order.
func mountOrder(folders Folders) []int {
	order := make([]int, len(folders))
	for i := range order {
		order[i] = i
	}

	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(mountRank(folders[a].Spec), mountRank(folders[b].Spec))
	})

	return order
}

func mountRank(spec FolderSpec) int {
	if !spec.AutoMount() {
		return math.MaxInt
	}

	return len(spec.GuestPath)
}
