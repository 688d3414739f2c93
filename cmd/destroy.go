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
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Wipe the machine's shared folder table and forget its identity.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runWithMachine(false, func(ctx context.Context, env *machineEnv) int {
			if !destroyYesFlag {
				fmt.Fprintf(os.Stderr, "Will permanently forget machine '%v'. Proceed? (y/n) > ", env.machine.Name)

				reader := bufio.NewReader(os.Stdin)
				answer, err := reader.ReadBytes('\n')
				if err != nil {
					slog.Error("Failed to read answer", "error", err.Error())
					return 1
				}

				if strings.ToLower(strings.TrimSpace(string(answer))) != "y" {
					fmt.Fprintf(os.Stderr, "Aborted.\n")
					return 2
				}
			}

			err := env.coordinator.Cleanup(ctx, env.machine)
			if err != nil {
				slog.Error("Failed to clean up shared folders", "error", err.Error())
				return 1
			}

			err = env.store.RemoveMachineID(env.machine.Name)
			if err != nil {
				slog.Error("Failed to remove machine identity", "error", err.Error())
				return 1
			}

			slog.Info("Destroyed machine", "machine", env.machine.Name)

			return 0
		}))
	},
}

var destroyYesFlag bool

func init() {
	destroyCmd.Flags().BoolVarP(&destroyYesFlag, "yes", "y", false, "Do not ask for confirmation.")
}
