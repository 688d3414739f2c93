package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the machine's shared folder table.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runWithMachine(false, func(ctx context.Context, env *machineEnv) int {
			usable, err := env.coordinator.Usable(env.machine, true)
			if err != nil {
				fmt.Printf("Shared folders: unusable (%v)\n", err)
			} else if usable {
				fmt.Println("Shared folders: usable")
			}

			if env.machine.ID == "" {
				fmt.Printf("Machine '%v' is not provisioned.\n", env.machine.Name)
				return 0
			}

			fmt.Printf("Machine '%v' (%v)\n", env.machine.Name, env.machine.ID)

			entries, err := env.driver().Entries(ctx)
			if err != nil {
				slog.Error("Failed to read shared folder table", "error", err.Error())
				return 1
			}

			if len(entries) == 0 {
				fmt.Println("No shared folders.")
				return 0
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tHOST PATH\tUPDATED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%v\t%v\t%v\n", e.Name, e.HostPath, humanize.Time(e.UpdatedAt))
			}

			err = tw.Flush()
			if err != nil {
				slog.Error("Failed to write status", "error", err.Error())
				return 1
			}

			return 0
		}))
	},
}
