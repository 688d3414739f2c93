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

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/AlexSSD7/foldersync/constants"
	"github.com/AlexSSD7/foldersync/sshutil"
	"github.com/AlexSSD7/foldersync/synced"
	"github.com/AlexSSD7/foldersync/utils"
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const DefaultPath = constants.AppName + ".toml"

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrap(err, "parse duration")
	}

	d.Duration = v

	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type ProviderConfig struct {
	FunctionalSharedFolders bool `toml:"functional_shared_folders"`
}

type SSHConfig struct {
	Host           string   `toml:"host"`
	Port           uint16   `toml:"port"`
	Username       string   `toml:"username"`
	PrivateKeyPath string   `toml:"private_key_path"`
	KnownHostsPath string   `toml:"known_hosts_path"`
	Timeout        Duration `toml:"timeout"`
}

type GuestConfig struct {
	CompetingServices []string `toml:"competing_services"`
}

type FolderConfig struct {
	ID            string `toml:"id"`
	HostPath      string `toml:"host_path"`
	GuestPath     string `toml:"guest_path"`
	Owner         string `toml:"owner"`
	Group         string `toml:"group"`
	HostPathExact bool   `toml:"host_path_exact"`
	MountOptions  string `toml:"mount_options"`
	Disabled      bool   `toml:"disabled"`
}

// Config is a single machine file.
type Config struct {
	Name           string         `toml:"name"`
	Provider       string         `toml:"provider"`
	ProviderConfig ProviderConfig `toml:"provider_config"`
	SSH            SSHConfig      `toml:"ssh"`
	Guest          GuestConfig    `toml:"guest"`
	Folders        []FolderConfig `toml:"folder"`
}

func Default() *Config {
	return &Config{
		Name:     "default",
		Provider: constants.ProviderName,
		ProviderConfig: ProviderConfig{
			FunctionalSharedFolders: true,
		},
		SSH: SSHConfig{
			Host:    "127.0.0.1",
			Port:    2222,
			Timeout: Duration{time.Second * 10},
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "decode config file '%v'", path)
	}

	err = checkUnknownKeys(md)
	if err != nil {
		return nil, err
	}

	err = cfg.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	return cfg, nil
}

func checkUnknownKeys(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}

	return fmt.Errorf("unknown config keys: %v", strings.Join(keys, ", "))
}

func (c *Config) Validate() error {
	var err error

	if !utils.ValidateMachineName(c.Name) {
		err = multierr.Append(err, fmt.Errorf("bad machine name '%v'", c.Name))
	}

	if c.Provider == "" {
		err = multierr.Append(err, fmt.Errorf("empty provider"))
	}

	seen := make(map[string]struct{}, len(c.Folders))

	for i, f := range c.Folders {
		if f.ID == "" {
			err = multierr.Append(err, fmt.Errorf("folder #%v: empty id", i))
		} else if _, ok := seen[f.ID]; ok {
			err = multierr.Append(err, fmt.Errorf("folder #%v: duplicate id '%v'", i, f.ID))
		}
		seen[f.ID] = struct{}{}

		if f.HostPath == "" {
			err = multierr.Append(err, fmt.Errorf("folder '%v': empty host path", f.ID))
		}

		if f.GuestPath != "" && !utils.ValidateGuestPath(f.GuestPath) {
			err = multierr.Append(err, fmt.Errorf("folder '%v': bad guest path '%v'", f.ID, f.GuestPath))
		}

		if f.Owner != "" && !utils.ValidateUnixOwner(f.Owner) {
			err = multierr.Append(err, fmt.Errorf("folder '%v': bad owner '%v'", f.ID, f.Owner))
		}

		if f.Group != "" && !utils.ValidateUnixOwner(f.Group) {
			err = multierr.Append(err, fmt.Errorf("folder '%v': bad group '%v'", f.ID, f.Group))
		}

		if f.MountOptions != "" && !utils.ValidateMountOptions(f.MountOptions) {
			err = multierr.Append(err, fmt.Errorf("folder '%v': bad mount options", f.ID))
		}
	}

	return err
}

// SyncedFolders returns the enabled folders in file order.
func (c *Config) SyncedFolders() synced.Folders {
	ret := make(synced.Folders, 0, len(c.Folders))

	for _, f := range c.Folders {
		if f.Disabled {
			continue
		}

		ret = append(ret, synced.Folder{
			ID: f.ID,
			Spec: synced.FolderSpec{
				HostPath:      f.HostPath,
				GuestPath:     f.GuestPath,
				Owner:         f.Owner,
				Group:         f.Group,
				HostPathExact: f.HostPathExact,
				MountOptions:  f.MountOptions,
			},
		})
	}

	return ret
}

func (c *Config) SSHUtilConfig() sshutil.Config {
	return sshutil.Config{
		Host:           c.SSH.Host,
		Port:           c.SSH.Port,
		User:           c.SSH.Username,
		PrivateKeyPath: c.SSH.PrivateKeyPath,
		KnownHostsPath: c.SSH.KnownHostsPath,
		Timeout:        c.SSH.Timeout.Duration,
	}
}
