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

package constants

const AppName = "foldersync"

const Version = "0.3.0"

// ProviderName is the only provider whose machines can use
// hypervisor-level shared folders.
const ProviderName = "qemu"

// 9p transport used both when rendering the QEMU arguments
// and when mounting inside the guest.
const (
	NinePSecurityModel = "mapped-xattr"
	NinePVersion       = "9p2000.L"
	NinePTransport     = "virtio"
)

var guestKernelModules = []string{"9p", "9pnet", "9pnet_virtio"}

func GetGuestKernelModules() []string {
	// Making a copy so that remote caller cannot modify the original variable.
	tmp := make([]string, len(guestKernelModules))
	copy(tmp, guestKernelModules)
	return tmp
}
