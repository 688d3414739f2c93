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

package hostpath

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/AlexSSD7/foldersync/osspecifics"
)

type PathErrorKind string

const (
	ErrEmpty      PathErrorKind = "empty"
	ErrBadDrive   PathErrorKind = "bad_drive"
	ErrNotAbsPath PathErrorKind = "not_absolute"
)

type PathError struct {
	Kind PathErrorKind
	Path string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("translate host path (%v): '%v'", e.Kind, e.Path)
}

// Translator converts host paths as written in the machine file into
// paths the hypervisor understands. Only Windows hosts need this: paths
// coming from Cygwin or MSYS shells look like "/cygdrive/c/x" or "/c/x".
type Translator struct {
	GOOS string
}

func Default() Translator {
	return Translator{GOOS: runtime.GOOS}
}

func (t Translator) Translate(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", &PathError{Kind: ErrEmpty, Path: p}
	}

	if t.GOOS != osspecifics.GOOSWindows {
		return p, nil
	}

	return toWindowsPath(p)
}

func toWindowsPath(p string) (string, error) {
	slashed := strings.ReplaceAll(p, `\`, "/")

	// Already drive-qualified, e.g. "C:/x" or "c:\x".
	if looksLikeDrivePath(slashed) {
		rest := slashed[2:]
		if !strings.HasPrefix(rest, "/") {
			return "", &PathError{Kind: ErrNotAbsPath, Path: p}
		}

		return strings.ToUpper(slashed[:1]) + ":" + strings.ReplaceAll(rest, "/", `\`), nil
	}

	// UNC paths are passed through as-is.
	if strings.HasPrefix(slashed, "//") {
		return strings.ReplaceAll(slashed, "/", `\`), nil
	}

	if !strings.HasPrefix(slashed, "/") {
		return "", &PathError{Kind: ErrNotAbsPath, Path: p}
	}

	rest := strings.TrimPrefix(slashed, "/cygdrive")
	if rest == "" {
		return "", &PathError{Kind: ErrBadDrive, Path: p}
	}

	parts := strings.SplitN(strings.TrimPrefix(rest, "/"), "/", 2)
	drive := parts[0]
	if len(drive) != 1 || !isASCIILetter(drive[0]) {
		return "", &PathError{Kind: ErrBadDrive, Path: p}
	}

	ret := strings.ToUpper(drive) + `:\`
	if len(parts) == 2 {
		ret += strings.ReplaceAll(parts[1], "/", `\`)
	}

	return ret, nil
}

func looksLikeDrivePath(s string) bool {
	return len(s) >= 2 && isASCIILetter(s[0]) && s[1] == ':'
}

func isASCIILetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
