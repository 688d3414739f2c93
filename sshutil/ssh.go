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

package sshutil

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/AlexSSD7/foldersync/utils"
	"github.com/bramvdbogaerde/go-scp"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultTimeout = time.Second * 10

// Config describes how to reach the guest over SSH.
type Config struct {
	Host           string
	Port           uint16
	User           string
	PrivateKeyPath string

	// With no known hosts file, host keys are not verified.
	KnownHostsPath string

	Timeout time.Duration
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, utils.UintToStr(c.Port))
}

// EffectiveTimeout bounds both dialing and every command session.
func (c Config) EffectiveTimeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}

	return c.Timeout
}

func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("empty host")
	}

	if c.Port == 0 {
		return fmt.Errorf("zero port")
	}

	if !utils.ValidateUnixUsername(c.User) {
		return fmt.Errorf("invalid username '%v'", c.User)
	}

	if c.PrivateKeyPath == "" {
		return fmt.Errorf("empty private key path")
	}

	return nil
}

func ClientConfig(logger *slog.Logger, c Config) (*ssh.ClientConfig, error) {
	err := c.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "validate ssh config")
	}

	keyBytes, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return nil, errors.Wrap(err, "read private key")
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}

	var hostKeyCallback ssh.HostKeyCallback
	if c.KnownHostsPath != "" {
		hostKeyCallback, err = knownhosts.New(c.KnownHostsPath)
		if err != nil {
			return nil, errors.Wrap(err, "load known hosts")
		}
	} else {
		logger.Warn("No known hosts file configured, guest host key will not be verified", "addr", c.Addr())
		hostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // Local guests get fresh host keys on every rebuild.
	}

	return &ssh.ClientConfig{
		User:            c.User,
		HostKeyCallback: hostKeyCallback,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		Timeout: c.EffectiveTimeout(),
	}, nil
}

func Dial(ctx context.Context, logger *slog.Logger, c Config) (*ssh.Client, error) {
	conf, err := ClientConfig(logger, c)
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: conf.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", c.Addr())
	if err != nil {
		return nil, errors.Wrap(err, "dial tcp")
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, c.Addr(), conf)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "create ssh client conn")
	}

	return ssh.NewClient(sshConn, chans, reqs), nil
}

func DialSCP(logger *slog.Logger, c Config) (*scp.Client, error) {
	conf, err := ClientConfig(logger, c)
	if err != nil {
		return nil, err
	}

	sc := scp.NewClient(c.Addr(), conf)
	err = sc.Connect()
	if err != nil {
		return nil, errors.Wrap(err, "connect scp")
	}

	return &sc, nil
}

func RunSSHCmd(ctx context.Context, sc *ssh.Client, timeout time.Duration, cmd string) ([]byte, error) {
	var ret []byte
	err := NewSSHSession(ctx, timeout, sc, func(sess *ssh.Session) error {
		stdout := bytes.NewBuffer(nil)
		stderr := bytes.NewBuffer(nil)

		sess.Stdout = stdout
		sess.Stderr = stderr

		err := sess.Run(cmd)
		if err != nil {
			return utils.WrapErrWithLog(err, "run cmd", stderr.String())
		}

		ret = stdout.Bytes()

		return nil
	})

	return ret, err
}

func NewSSHSession(ctx context.Context, timeout time.Duration, sc *ssh.Client, fn func(*ssh.Session) error) error {
	s, err := sc.NewSession()
	if err != nil {
		return errors.Wrap(err, "create new ssh session")
	}

	defer func() { _ = s.Close() }()

	done := make(chan struct{})
	defer close(done)

	var timedOut atomic.Bool

	// Closing the client is the only way to interrupt a running session.
	go func() {
		select {
		case <-ctx.Done():
			timedOut.Store(true)
			_ = sc.Close()
		case <-time.After(timeout):
			timedOut.Store(true)
			_ = sc.Close()
		case <-done:
		}
	}()

	err = fn(s)
	if timedOut.Load() {
		return fmt.Errorf("timed out (%w)", err)
	}

	return err
}
