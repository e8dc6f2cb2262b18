package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

type implRunner struct{}

// New creates a new Runner instance
func New() Runner {
	return &implRunner{}
}

// Start launches an external command with piped stdout and stderr.
// The command runs in its own process group so that termination reaches
// its children too. Cancelling the context kills the group.
func (r *implRunner) Start(ctx context.Context, name string, args ...string) (Handle, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return killGroup(cmd) }

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start '%s': %w", name, err)
	}

	return &procHandle{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type procHandle struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (h *procHandle) Stdout() io.Reader { return h.stdout }
func (h *procHandle) Stderr() io.Reader { return h.stderr }

// Wait returns the process exit code. A non-zero exit is reported in the
// code, not the error; the error covers infrastructure failures only.
func (h *procHandle) Wait() (int, error) {
	if err := h.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("wait '%s': %w", h.cmd.Path, err)
	}
	return 0, nil
}

func (h *procHandle) Kill() error {
	if err := killGroup(h.cmd); err != nil {
		return fmt.Errorf("kill '%s': %w", h.cmd.Path, err)
	}
	return nil
}

// killGroup terminates the command's whole process group. An
// already-exited process is not an error.
func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	if err == nil || errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	// Fall back to killing the process itself.
	if kerr := cmd.Process.Kill(); kerr == nil || errors.Is(kerr, os.ErrProcessDone) {
		return nil
	}
	return err
}
