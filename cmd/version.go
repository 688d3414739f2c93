package cmd

import (
	"fmt"
	"runtime"

	"github.com/AlexSSD7/foldersync/constants"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show Foldersync version.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Foldersync %v %v/%v %v\n", constants.Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
	},
}
