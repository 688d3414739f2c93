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
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"
)

const (
	// Older guest kernels refuse longer virtio-9p mount tags.
	maxMountTagLen = 31

	mountTagHashLen = 8
)

// mountTag returns name unchanged if it fits into a mount tag. Longer
// names are cut down to a prefix followed by a hash of the whole name,
// so distinct names sharing a prefix still get distinct tags.
func mountTag(name string) string {
	if len(name) <= maxMountTagLen {
		return name
	}

	sum := sha256.Sum256([]byte(name))

	// Cut at a rune boundary.
	cut := maxMountTagLen - mountTagHashLen - 1
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	prefix := name[:cut]

	return prefix + "-" + hex.EncodeToString(sum[:])[:mountTagHashLen]
}
