package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlexSSD7/foldersync/config"
	"github.com/AlexSSD7/foldersync/guest"
	"github.com/AlexSSD7/foldersync/hostpath"
	"github.com/AlexSSD7/foldersync/storage"
	"github.com/AlexSSD7/foldersync/synced"
	"github.com/AlexSSD7/foldersync/ui"
	"github.com/AlexSSD7/foldersync/vm"
	"github.com/pkg/errors"
)

func createStore() *storage.Storage {
	store, err := storage.NewStorage(slog.With("caller", "storage"), dataDirFlag)
	if err != nil {
		slog.Error("Failed to create data storage", "error", err.Error(), "data-dir", dataDirFlag)
		os.Exit(1)
	}

	return store
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configPathFlag)
	if err != nil {
		slog.Error("Failed to load machine file", "error", err.Error(), "path", configPathFlag)
		os.Exit(1)
	}

	return cfg
}

// signalContext is canceled on the first SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

type machineEnv struct {
	cfg   *config.Config
	store *storage.Storage
	table *storage.FolderTable

	machine     *synced.Machine
	coordinator *synced.Coordinator
}

func newFolderDriver(table *storage.FolderTable, m *synced.Machine) *vm.FolderDriver {
	return vm.NewFolderDriver(slog.With("caller", "folder-driver", "machine", m.Name), table, m.ID)
}

func (env *machineEnv) driver() *vm.FolderDriver {
	return newFolderDriver(env.table, env.machine)
}

func (env *machineEnv) Close() {
	err := env.table.Close()
	if err != nil {
		slog.Warn("Failed to close shared folder table", "error", err.Error())
	}
}

// openMachine wires everything a command needs to operate on the machine
// described by the machine file. With provision set, a missing machine
// identity is created.
func openMachine(ctx context.Context, provision bool) (*machineEnv, error) {
	cfg := loadConfig()
	store := createStore()

	var id string
	var err error

	if provision {
		id, _, err = store.EnsureMachineID(cfg.Name)
		if err != nil {
			return nil, errors.Wrap(err, "ensure machine id")
		}
	} else {
		id, err = store.ReadMachineID(cfg.Name)
		if err != nil {
			return nil, errors.Wrap(err, "read machine id")
		}
	}

	table, err := store.OpenFolderTable(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "open shared folder table")
	}

	runner := guest.NewSSHRunner(slog.With("caller", "guest-ssh"), cfg.SSHUtilConfig())

	guestProvider, err := guest.NewLinux(slog.With("caller", "guest"), runner, guest.LinuxOptions{
		CompetingServices: cfg.Guest.CompetingServices,
	})
	if err != nil {
		_ = table.Close()
		return nil, errors.Wrap(err, "create linux guest provider")
	}

	env := &machineEnv{
		cfg:   cfg,
		store: store,
		table: table,

		machine: &synced.Machine{
			Name:         cfg.Name,
			ID:           id,
			ProviderName: cfg.Provider,
			ProviderConfig: synced.ProviderConfig{
				FunctionalSharedFolders: cfg.ProviderConfig.FunctionalSharedFolders,
			},
			SSHInfo: synced.SSHInfo{
				Username: cfg.SSH.Username,
			},
			Guest: guestProvider,
			UI:    ui.NewConsole(os.Stdout, cfg.Name),
		},
	}

	env.coordinator = synced.NewCoordinator(slog.With("caller", "coordinator"), func(m *synced.Machine) synced.Driver {
		return newFolderDriver(table, m)
	}, hostpath.Default())

	return env, nil
}

// runWithMachine is the common body of every command that operates
// on a machine. It returns the process exit code.
func runWithMachine(provision bool, fn func(context.Context, *machineEnv) int) int {
	ctx, cancel := signalContext()
	defer cancel()

	env, err := openMachine(ctx, provision)
	if err != nil {
		slog.Error("Failed to open machine", "error", err.Error())
		return 1
	}

	defer env.Close()

	return fn(ctx, env)
}

func enableFolders(ctx context.Context, env *machineEnv) int {
	_, err := env.coordinator.Usable(env.machine, true)
	if err != nil {
		slog.Error("Shared folders are not usable for this machine", "error", err.Error())
		return 1
	}

	err = env.coordinator.Enable(ctx, env.machine, env.cfg.SyncedFolders())
	if err != nil {
		slog.Error("Failed to enable shared folders", "error", err.Error())
		return 1
	}

	return 0
}

func disableFolders(ctx context.Context, env *machineEnv) int {
	err := env.coordinator.Disable(ctx, env.machine, env.cfg.SyncedFolders())
	if err != nil {
		slog.Error("Failed to disable shared folders", "error", err.Error())
		return 1
	}

	return 0
}
