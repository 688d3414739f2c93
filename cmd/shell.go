package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/AlexSSD7/foldersync/sshutil"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open an interactive SSH shell in the guest.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runShell())
	},
}

func runShell() int {
	cfg := loadConfig()

	ctx, cancel := signalContext()
	defer cancel()

	sc, err := sshutil.Dial(ctx, slog.With("caller", "shell"), cfg.SSHUtilConfig())
	if err != nil {
		slog.Error("Failed to dial guest SSH", "error", err.Error())
		return 1
	}

	defer func() { _ = sc.Close() }()

	sess, err := sc.NewSession()
	if err != nil {
		slog.Error("Failed to create new guest SSH session", "error", err.Error())
		return 1
	}

	defer func() { _ = sess.Close() }()

	termFD := int(os.Stdin.Fd())
	termState, err := term.MakeRaw(termFD)
	if err != nil {
		slog.Error("Failed to make raw terminal", "error", err.Error())
		return 1
	}

	defer func() {
		err := term.Restore(termFD, termState)
		if err != nil {
			slog.Error("Failed to restore terminal", "error", err.Error())
		}
	}()

	termWidth, termHeight, err := term.GetSize(termFD)
	if err != nil {
		slog.Error("Failed to get terminal size", "error", err.Error())
		return 1
	}

	termModes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}

	termName := os.Getenv("TERM")
	if termName == "" {
		termName = "xterm-256color"
	}

	err = sess.RequestPty(termName, termHeight, termWidth, termModes)
	if err != nil {
		slog.Error("Failed to request guest SSH pty", "error", err.Error())
		return 1
	}

	sess.Stdin = os.Stdin
	sess.Stdout = os.Stdout
	sess.Stderr = os.Stderr

	err = sess.Shell()
	if err != nil {
		slog.Error("Failed to start guest SSH shell", "error", err.Error())
		return 1
	}

	return waitSession(ctx, sess)
}

func waitSession(ctx context.Context, sess *ssh.Session) int {
	doneCh := make(chan error, 1)

	go func() {
		doneCh <- sess.Wait()
	}()

	select {
	case <-ctx.Done():
		return 1
	case err := <-doneCh:
		if err != nil {
			if exitErr, ok := err.(*ssh.ExitError); ok {
				return exitErr.ExitStatus()
			}

			slog.Error("Failed to wait for guest SSH session to finish", "error", err.Error())
			return 1
		}

		return 0
	}
}
