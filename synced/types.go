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
	"context"
	"fmt"
)

// Capability names a guest operation that may or may not be supported
// by the guest OS family.
type Capability string

const (
	CapPrepareServices     Capability = "prepare_synced_folder_services"
	CapMountSharedFolder   Capability = "mount_shared_folder"
	CapUnmountSharedFolder Capability = "unmount_shared_folder"
)

type FolderSpec struct {
	HostPath string
	// Empty means the folder is shared with the hypervisor
	// but not mounted in the guest.
	GuestPath string

	// Both default to the machine SSH username when empty.
	Owner string
	Group string

	// Skip platform path translation.
	HostPathExact bool

	// Extra guest mount options, comma-separated.
	MountOptions string
}

func (s FolderSpec) AutoMount() bool {
	return s.GuestPath != ""
}

type Folder struct {
	ID   string
	Spec FolderSpec
}

// Folders is ordered. Deduplication keeps the first folder in this order.
type Folders []Folder

type Declaration struct {
	Name     string
	HostPath string
}

// Driver persists the hypervisor-level shared folder table of a single machine.
type Driver interface {
	// ShareFolders upserts the declarations.
	ShareFolders(ctx context.Context, decls []Declaration) error
	// ReadSharedFolders returns the table in insertion order.
	ReadSharedFolders(ctx context.Context) ([]Declaration, error)
	UnshareFolders(ctx context.Context, names []string) error
	ClearSharedFolders(ctx context.Context) error
}

// DriverFunc returns the driver of the machine.
type DriverFunc func(m *Machine) Driver

type Guest interface {
	HasCapability(c Capability) bool
	Invoke(ctx context.Context, c Capability, args ...any) error
}

type UI interface {
	Output(msg string)
	Detail(msg string)
}

type PathTranslator interface {
	Translate(hostPath string) (string, error)
}

type ProviderConfig struct {
	FunctionalSharedFolders bool
}

type SSHInfo struct {
	Username string
}

type Machine struct {
	Name string
	// Empty until the machine has a backing instance.
	ID string

	ProviderName   string
	ProviderConfig ProviderConfig
	SSHInfo        SSHInfo

	Guest Guest
	UI    UI
}

func (m *Machine) validate() error {
	if m == nil {
		return errNilMachine
	}

	if m.Guest == nil {
		return fmt.Errorf("machine '%v' has no guest capability provider", m.Name)
	}

	if m.UI == nil {
		return fmt.Errorf("machine '%v' has no ui", m.Name)
	}

	return nil
}
