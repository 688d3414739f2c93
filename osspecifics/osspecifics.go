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

package osspecifics

import (
	"os"
	"path/filepath"
	"runtime"
)

// For some reason, `runtime` package does not provide this while
// "goconst" linter complains about us not using constants in
// expressions like `runtime.GOOS == "windows"`.

const (
	GOOSWindows = "windows"
	GOOSDarwin  = "darwin"
)

func IsWindows() bool {
	return runtime.GOOS == GOOSWindows
}

func IsMacOS() bool {
	return runtime.GOOS == GOOSDarwin
}

// DefaultDataDir returns the per-user directory used to keep the
// shared folder table and machine identities.
func DefaultDataDir(appName string) string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}

	if IsWindows() {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, appName)
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		// Falling back to the working directory.
		return filepath.Join("."+appName, "data")
	}

	if IsMacOS() {
		return filepath.Join(home, "Library", "Application Support", appName)
	}

	return filepath.Join(home, ".local", "share", appName)
}
