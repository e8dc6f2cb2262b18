package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/codexvoice/dictation/internal/logger"
	"github.com/codexvoice/dictation/pkg/executor"
)

// frameSize is 100 ms of 16 kHz mono 16-bit PCM.
const frameSize = 3200

// commandSource streams frames from the stdout of a capture command
// such as arecord. The command must emit raw 16 kHz mono s16le samples.
type commandSource struct {
	runner executor.Runner
	name   string
	args   []string
	logger logger.Logger

	mu     sync.Mutex
	handle executor.Handle
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCommandSource creates a Source backed by an external capture command
func NewCommandSource(runner executor.Runner, name string, args []string, log logger.Logger) Source {
	return &commandSource{
		runner: runner,
		name:   name,
		args:   args,
		logger: log,
	}
}

func (s *commandSource) Start(onFrame func(frame []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != nil {
		return fmt.Errorf("capture command already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	handle, err := s.runner.Start(ctx, s.name, s.args...)
	if err != nil {
		cancel()
		return fmt.Errorf("start capture command: %w", err)
	}

	done := make(chan struct{})
	s.handle = handle
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		buf := make([]byte, frameSize)
		for {
			n, err := handle.Stdout().Read(buf)
			if n > 0 {
				frame := make([]byte, n)
				copy(frame, buf[:n])
				onFrame(frame)
			}
			if err != nil {
				return
			}
		}
	}()

	return nil
}

func (s *commandSource) Stop() error {
	s.mu.Lock()
	handle := s.handle
	cancel := s.cancel
	done := s.done
	s.handle = nil
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if handle == nil {
		return nil
	}

	cancel()
	if err := handle.Kill(); err != nil {
		s.logger.Warn(context.Background(), "Failed to kill capture command: %v", err)
	}
	<-done
	handle.Wait()
	return nil
}
