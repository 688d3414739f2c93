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

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var copyrightCmd = &cobra.Command{
	Use:   "copyright",
	Short: "Show copyright and licensing information.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(`Copyright (c) 2023 The Foldersync Authors
This program comes with ABSOLUTELY NO WARRANTY. This is free software, and you are welcome to redistribute it under the conditions set by the GNU General Public License v3.
You can view the full license in the LICENSE file supplied with the source code of this program.
`)
	},
}
