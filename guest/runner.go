package guest

import (
	"context"
	"io"
	"log/slog"

	"github.com/AlexSSD7/foldersync/sshutil"
	"github.com/pkg/errors"
)

// Runner executes shell commands in the guest and uploads files into it.
type Runner interface {
	Run(ctx context.Context, cmd string) ([]byte, error)
	Upload(ctx context.Context, r io.Reader, path string, perm string) error
}

// SSHRunner opens a fresh SSH connection for every call.
type SSHRunner struct {
	logger *slog.Logger

	cfg sshutil.Config
}

var _ Runner = (*SSHRunner)(nil)

func NewSSHRunner(logger *slog.Logger, cfg sshutil.Config) *SSHRunner {
	return &SSHRunner{
		logger: logger,

		cfg: cfg,
	}
}

func (r *SSHRunner) Run(ctx context.Context, cmd string) ([]byte, error) {
	sc, err := sshutil.Dial(ctx, r.logger, r.cfg)
	if err != nil {
		return nil, errors.Wrap(err, "dial guest ssh")
	}

	defer func() { _ = sc.Close() }()

	r.logger.Debug("Running guest command", "cmd", cmd)

	return sshutil.RunSSHCmd(ctx, sc, r.cfg.EffectiveTimeout(), cmd)
}

func (r *SSHRunner) Upload(ctx context.Context, src io.Reader, path string, perm string) error {
	scpCtx, scpCtxCancel := context.WithTimeout(ctx, r.cfg.EffectiveTimeout())
	defer scpCtxCancel()

	scpClient, err := sshutil.DialSCP(r.logger, r.cfg)
	if err != nil {
		return errors.Wrap(err, "dial scp")
	}

	defer scpClient.Close()

	err = scpClient.CopyFile(scpCtx, src, path, perm)
	if err != nil {
		return errors.Wrapf(err, "copy file to '%v'", path)
	}

	return nil
}
