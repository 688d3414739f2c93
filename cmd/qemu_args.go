package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/AlexSSD7/foldersync/qemucli"
	"github.com/spf13/cobra"
)

var qemuArgsCmd = &cobra.Command{
	Use:   "qemu-args",
	Short: "Print the QEMU arguments that expose the shared folder table to the guest.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runWithMachine(false, func(ctx context.Context, env *machineEnv) int {
			if env.machine.ID == "" {
				slog.Error("Machine is not provisioned, run `up` first", "machine", env.machine.Name)
				return 1
			}

			virtfsArgs, err := env.driver().VirtFSArgs(ctx)
			if err != nil {
				slog.Error("Failed to build virtfs args", "error", err.Error())
				return 1
			}

			encoded, err := qemucli.Argv(virtfsArgs)
			if err != nil {
				slog.Error("Failed to render QEMU args", "error", err.Error())
				return 1
			}

			fmt.Println(strings.Join(encoded, " "))

			return 0
		}))
	},
}
