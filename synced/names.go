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

import "strings"

var friendlyNameReplacer = strings.NewReplacer(
	"*", "_",
	`"`, "_",
	":", "_",
	"<", "_",
	">", "_",
	"?", "_",
	"|", "_",
	"/", "_",
	`\`, "_",
)

// FriendlyName maps a folder ID to the name stored in the hypervisor
// table. Only one leading underscore is removed, so "//x" becomes "_x".
// Distinct IDs may map to the same name.
func FriendlyName(id string) string {
	return strings.TrimPrefix(friendlyNameReplacer.Replace(id), "_")
}

func friendlyNames(folders Folders) []string {
	names := make([]string, 0, len(folders))
	for _, f := range folders {
		names = append(names, FriendlyName(f.ID))
	}

	return names
}
