package cmd

import (
	"log/slog"
	"os"

	"github.com/AlexSSD7/foldersync/config"
	"github.com/AlexSSD7/foldersync/constants"
	"github.com/AlexSSD7/foldersync/osspecifics"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   constants.AppName,
	Short: "Keep host folders shared into QEMU guests over virtio-9p.",
	Long: `Foldersync reconciles the folders declared in a machine file with the QEMU shared folder table ` +
		`and the mounts inside a Linux guest. Folders are exposed to the guest as virtio-9p devices and ` +
		`mounted over SSH, parents before their nested children.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugFlag {
			logLevel.Set(slog.LevelDebug)
		}
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var logLevel slog.LevelVar

var (
	configPathFlag string
	dataDirFlag    string
	debugFlag      bool
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel})))

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(haltCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(qemuArgsCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(copyrightCmd)

	rootCmd.PersistentFlags().StringVarP(&configPathFlag, "config", "c", config.DefaultPath, "Path to the machine file.")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", osspecifics.DefaultDataDir(constants.AppName), "Directory with machine identities and the shared folder table.")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging.")
}
