package executor

import (
	"context"
	"io"
)

// Runner defines the interface for launching external commands whose
// output is consumed while they run
type Runner interface {
	Start(ctx context.Context, name string, args ...string) (Handle, error)
}

// Handle is one running command. Wait must be called exactly once after
// both streams reach end-of-stream.
type Handle interface {
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until the process exits and returns its exit code.
	Wait() (int, error)
	// Kill terminates the process. Calling it on an already-exited
	// process is not an error.
	Kill() error
}
