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

package guest

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/AlexSSD7/foldersync/constants"
	"github.com/AlexSSD7/foldersync/synced"
	"github.com/AlexSSD7/foldersync/utils"
	"github.com/alessio/shellescape"
	"github.com/pkg/errors"
)

const modulesLoadPath = "/etc/modules-load.d/" + constants.AppName + ".conf"

var serviceNameRegexp = regexp.MustCompile(`^[A-Za-z0-9@._-]{1,128}$`)

type LinuxOptions struct {
	// Guest services that manage shared folders on their own
	// and would fight over our mounts.
	CompetingServices []string
}

type linux struct {
	logger *slog.Logger

	runner Runner
	opts   LinuxOptions
}

// NewLinux returns a provider that mounts virtio-9p shares in a Linux guest.
func NewLinux(logger *slog.Logger, runner Runner, opts LinuxOptions) (*Provider, error) {
	for _, svc := range opts.CompetingServices {
		if !serviceNameRegexp.MatchString(svc) {
			return nil, fmt.Errorf("bad competing service name '%v'", svc)
		}
	}

	l := &linux{
		logger: logger,

		runner: runner,
		opts:   opts,
	}

	p := NewProvider(logger)
	p.Register(synced.CapMountSharedFolder, l.mountSharedFolder)
	p.Register(synced.CapUnmountSharedFolder, l.unmountSharedFolder)
	p.Register(synced.CapPrepareServices, l.prepareServices)

	return p, nil
}

func (l *linux) mountSharedFolder(ctx context.Context, args ...any) error {
	name, err := argAt[string](args, 0)
	if err != nil {
		return err
	}

	guestPath, err := argAt[string](args, 1)
	if err != nil {
		return err
	}

	spec, err := argAt[synced.FolderSpec](args, 2)
	if err != nil {
		return err
	}

	if name == "" {
		return fmt.Errorf("empty mount tag")
	}

	if !utils.ValidateGuestPath(guestPath) {
		return fmt.Errorf("bad guest path '%v'", guestPath)
	}

	mountOptions := "trans=" + constants.NinePTransport + ",version=" + constants.NinePVersion
	if spec.MountOptions != "" {
		if !utils.ValidateMountOptions(spec.MountOptions) {
			return fmt.Errorf("invalid mount options (contains illegal characters)")
		}
		mountOptions += "," + spec.MountOptions
	}

	uid, err := l.resolveID(ctx, spec.Owner, "id -u")
	if err != nil {
		return errors.Wrapf(err, "resolve owner '%v'", spec.Owner)
	}

	gid, err := l.resolveID(ctx, spec.Group, "getent group")
	if err != nil {
		return errors.Wrapf(err, "resolve group '%v'", spec.Group)
	}

	gp := shellescape.Quote(guestPath)
	tag := shellescape.Quote(name)

	// A mount from another source, e.g. left over from an earlier
	// configuration, is replaced. Its source is echoed back.
	cmd := "mkdir -p " + gp +
		" && src=$(findmnt -n -o SOURCE --mountpoint " + gp + " | tail -n 1)" +
		` && if [ "$src" != ` + tag + ` ]; then` +
		` if [ -n "$src" ]; then echo "$src" && umount ` + gp + `; fi` +
		" && mount -t 9p -o " + shellescape.Quote(mountOptions) + " " + tag + " " + gp + "; fi"
	if uid != "" || gid != "" {
		cmd += " && chown " + shellescape.Quote(uid+":"+gid) + " " + gp
	}

	out, err := l.runner.Run(ctx, cmd)
	if err != nil {
		return errors.Wrap(err, "run mount cmd")
	}

	if replaced := strings.TrimSpace(string(out)); replaced != "" {
		l.logger.Warn("Replaced a mount with a different source", "guest-path", guestPath, "old-source", utils.ClearUnprintableChars(replaced, false), "mount-tag", name)
	}

	l.logger.Debug("Mounted virtio-9p share", "mount-tag", name, "guest-path", guestPath)

	return nil
}

// resolveID turns a user or group name into a numeric id. lookupCmd
// is either "id -u" or "getent group".
func (l *linux) resolveID(ctx context.Context, s string, lookupCmd string) (string, error) {
	if s == "" || utils.IsNumericUnixID(s) {
		return s, nil
	}

	if !utils.ValidateUnixOwner(s) {
		return "", fmt.Errorf("bad unix name")
	}

	out, err := l.runner.Run(ctx, lookupCmd+" "+shellescape.Quote(s))
	if err != nil {
		return "", errors.Wrap(err, "run lookup cmd")
	}

	id := strings.TrimSpace(string(out))
	if lookupCmd == "getent group" {
		// name:password:gid:members
		fields := strings.Split(id, ":")
		if len(fields) < 3 {
			return "", fmt.Errorf("bad getent output '%v'", utils.ClearUnprintableChars(id, false))
		}
		id = fields[2]
	}

	if !utils.IsNumericUnixID(id) {
		return "", fmt.Errorf("non-numeric id '%v'", utils.ClearUnprintableChars(id, false))
	}

	return id, nil
}

func (l *linux) unmountSharedFolder(ctx context.Context, args ...any) error {
	guestPath, err := argAt[string](args, 0)
	if err != nil {
		return err
	}

	if guestPath == "" {
		return nil
	}

	if !utils.ValidateGuestPath(guestPath) {
		return fmt.Errorf("bad guest path '%v'", guestPath)
	}

	gp := shellescape.Quote(guestPath)

	_, err = l.runner.Run(ctx, "if mountpoint -q "+gp+"; then umount "+gp+"; fi")
	if err != nil {
		return errors.Wrap(err, "run umount cmd")
	}

	return nil
}

func (l *linux) prepareServices(ctx context.Context, _ ...any) error {
	modules := constants.GetGuestKernelModules()

	err := l.runner.Upload(ctx, strings.NewReader(strings.Join(modules, "\n")+"\n"), modulesLoadPath, "0644")
	if err != nil {
		return errors.Wrap(err, "upload modules-load config")
	}

	quoted := make([]string, len(modules))
	for i, m := range modules {
		quoted[i] = shellescape.Quote(m)
	}

	_, err = l.runner.Run(ctx, "modprobe -a "+strings.Join(quoted, " "))
	if err != nil {
		return errors.Wrap(err, "load kernel modules")
	}

	for _, svc := range l.opts.CompetingServices {
		s := shellescape.Quote(svc)

		_, err := l.runner.Run(ctx, "if command -v systemctl >/dev/null 2>&1; then systemctl stop "+s+"; else rc-service "+s+" stop; fi")
		if err != nil {
			// Services that don't exist in this guest are fine to skip.
			l.logger.Warn("Failed to stop competing service", "service", svc, "error", err.Error())
			continue
		}

		l.logger.Info("Stopped competing shared folder service", "service", svc)
	}

	return nil
}
