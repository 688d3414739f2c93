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

package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/AlexSSD7/foldersync/synced"
	"github.com/AlexSSD7/foldersync/utils"
	"github.com/mattn/go-isatty"
)

const (
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

// Console prints machine-scoped progress lines.
type Console struct {
	mu sync.Mutex

	w       io.Writer
	machine string
	color   bool
}

var _ synced.UI = (*Console)(nil)

func NewConsole(w io.Writer, machine string) *Console {
	return &Console{
		w:       w,
		machine: utils.ClearUnprintableChars(machine, false),
		color:   isTerminal(w),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *Console) Output(msg string) {
	line := "==> " + c.machine + ": " + utils.ClearUnprintableChars(msg, false)
	if c.color {
		line = ansiBold + line + ansiReset
	}

	c.println(line)
}

func (c *Console) Detail(msg string) {
	c.println("    " + c.machine + ": " + utils.ClearUnprintableChars(msg, false))
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = fmt.Fprintln(c.w, line)
}
