package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlexSSD7/foldersync/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const folderTableFileName = "folders.db"

type Storage struct {
	logger *slog.Logger

	path string
}

func NewStorage(logger *slog.Logger, dataDir string) (*Storage, error) {
	dataDir = filepath.Clean(dataDir)

	err := os.MkdirAll(dataDir, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "mkdir all data dir")
	}

	return &Storage{
		logger: logger,

		path: dataDir,
	}, nil
}

func (s *Storage) DataDirPath() string {
	return s.path
}

func (s *Storage) FolderTablePath() string {
	return filepath.Join(s.path, folderTableFileName)
}

func (s *Storage) OpenFolderTable(ctx context.Context) (*FolderTable, error) {
	return OpenFolderTable(ctx, s.logger.With("subcaller", "folder-table"), s.FolderTablePath())
}

func (s *Storage) machineIDPath(name string) (string, error) {
	if !utils.ValidateMachineName(name) {
		return "", fmt.Errorf("invalid machine name '%v'", name)
	}

	return filepath.Join(s.path, "machines", name, "id"), nil
}

// ReadMachineID returns an empty string if the machine was never provisioned.
func (s *Storage) ReadMachineID(name string) (string, error) {
	p, err := s.machineIDPath(name)
	if err != nil {
		return "", err
	}

	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}

		return "", errors.Wrap(err, "read machine id file")
	}

	return strings.TrimSpace(string(b)), nil
}

// EnsureMachineID returns the existing machine ID or creates a new one.
// The boolean is true if the ID was created by this call.
func (s *Storage) EnsureMachineID(name string) (string, bool, error) {
	id, err := s.ReadMachineID(name)
	if err != nil {
		return "", false, errors.Wrap(err, "read machine id")
	}

	if id != "" {
		return id, false, nil
	}

	p, err := s.machineIDPath(name)
	if err != nil {
		return "", false, err
	}

	err = os.MkdirAll(filepath.Dir(p), 0700)
	if err != nil {
		return "", false, errors.Wrap(err, "mkdir all machine dir")
	}

	id = uuid.New().String()

	err = os.WriteFile(p, []byte(id+"\n"), 0600)
	if err != nil {
		return "", false, errors.Wrap(err, "write machine id file")
	}

	s.logger.Info("Provisioned new machine identity", "machine", name, "id", id)

	return id, true, nil
}

func (s *Storage) RemoveMachineID(name string) error {
	p, err := s.machineIDPath(name)
	if err != nil {
		return err
	}

	err = os.RemoveAll(filepath.Dir(p))
	if err != nil {
		return errors.Wrap(err, "remove machine dir")
	}

	return nil
}
