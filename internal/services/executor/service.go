// Package executor runs the trailing command with the caller's stdio.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/fgeck/wait-for-it/internal/models"
	"github.com/rs/zerolog"
)

// Exit codes used when the command cannot be started, following the shell.
const (
	ExitNotExecutable = 126
	ExitNotFound      = 127
)

// Grace period between SIGTERM and SIGKILL once the context is cancelled.
const killDelay = 10 * time.Second

// Service defines the interface for running the trailing command.
type Service interface {
	Run(ctx context.Context, command []string) (*models.CommandResult, error)
}

// Impl implements the executor Service interface.
type Impl struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger zerolog.Logger
}

// New creates a new executor bound to the process's own stdio.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: logger,
	}
}

// NewWithIO creates a new executor with custom stdio (for testing).
func NewWithIO(logger zerolog.Logger, stdin io.Reader, stdout, stderr io.Writer) *Impl {
	return &Impl{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: logger,
	}
}

// Run starts command[0] with the remaining elements as arguments and waits
// for it. The command's exit code is returned in the result; a non-nil error
// means the command could not be started at all.
func (s *Impl) Run(ctx context.Context, command []string) (*models.CommandResult, error) {
	if len(command) == 0 {
		return nil, errors.New("no command given")
	}

	start := time.Now()
	result := &models.CommandResult{}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...) //nolint:gosec // running the caller's command is the point
	cmd.Stdin = s.stdin
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killDelay

	s.logger.Debug().
		Strs("command", command).
		Msg("starting command")

	if err := cmd.Start(); err != nil {
		result.Duration = time.Since(start)
		switch {
		case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
			result.ExitCode = ExitNotFound
			return result, fmt.Errorf("exec: %s: not found", command[0])
		case errors.Is(err, fs.ErrPermission):
			result.ExitCode = ExitNotExecutable
			return result, fmt.Errorf("exec: %s: permission denied", command[0])
		default:
			result.ExitCode = ExitNotExecutable
			return result, fmt.Errorf("exec: %s: %w", command[0], err)
		}
	}

	err := cmd.Wait()
	result.Duration = time.Since(start)
	result.ExitCode = exitCode(cmd.ProcessState)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// I/O copy failures or WaitDelay expiry; the exit status still stands.
		s.logger.Debug().Err(err).Msg("command wait returned error")
	}

	s.logger.Debug().
		Int("exit_code", result.ExitCode).
		Dur("duration", result.Duration).
		Msg("command finished")

	return result, nil
}

// exitCode maps a finished process to a shell-style exit status.
func exitCode(state *os.ProcessState) int {
	if state == nil {
		return 1
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return 1
}
