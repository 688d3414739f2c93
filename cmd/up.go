package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Share and mount all folders declared in the machine file.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runWithMachine(true, enableFolders))
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Unmount and unshare all folders, then share and mount them again.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runWithMachine(true, func(ctx context.Context, env *machineEnv) int {
			if code := disableFolders(ctx, env); code != 0 {
				return code
			}

			return enableFolders(ctx, env)
		}))
	},
}

var haltCmd = &cobra.Command{
	Use:   "halt",
	Short: "Unmount all folders and remove them from the shared folder table.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runWithMachine(false, disableFolders))
	},
}
