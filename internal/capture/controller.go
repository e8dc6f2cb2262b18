// Package capture records fixed-format microphone audio into session
// folders. The capture format is 16 kHz mono 16-bit PCM.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codexvoice/dictation/internal/logger"
	"github.com/codexvoice/dictation/internal/session"
)

type implController struct {
	source Source
	logger logger.Logger
	chunks chan []byte

	// mu guards the sink against the race between the frame callback
	// and Stop.
	mu       sync.Mutex
	sink     *wavSink
	path     string
	lastPath string
}

func (c *implController) Start(sessionFolder string) (string, error) {
	ctx := context.Background()

	c.mu.Lock()
	if c.sink != nil {
		c.mu.Unlock()
		return "", session.ErrAlreadyRunning
	}

	if err := os.MkdirAll(sessionFolder, 0755); err != nil {
		c.mu.Unlock()
		return "", fmt.Errorf("create session folder: %w", err)
	}

	path := filepath.Join(sessionFolder, fmt.Sprintf("capture-%s.wav", time.Now().Format("20060102-150405")))
	sink, err := newWAVSink(path)
	if err != nil {
		c.mu.Unlock()
		return "", fmt.Errorf("open audio sink: %w", err)
	}
	c.sink = sink
	c.path = path
	c.mu.Unlock()

	if err := c.source.Start(c.handleFrame); err != nil {
		c.mu.Lock()
		c.sink.Close()
		c.sink = nil
		c.path = ""
		c.mu.Unlock()
		os.Remove(path)
		return "", fmt.Errorf("start capture source: %w", err)
	}

	c.logger.Info(ctx, "Capture started: %s", path)
	return path, nil
}

func (c *implController) Stop() string {
	ctx := context.Background()

	c.mu.Lock()
	active := c.sink != nil
	c.mu.Unlock()

	if !active {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.lastPath
	}

	// Unregister the frame callback before releasing the sink so no
	// frame is written to a closed file.
	if err := c.source.Stop(); err != nil {
		c.logger.Warn(ctx, "Failed to stop capture source: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink == nil {
		return c.lastPath
	}

	if err := c.sink.Close(); err != nil {
		c.logger.Warn(ctx, "Failed to finalize audio sink: %v", err)
	}
	c.lastPath = c.path
	c.sink = nil
	c.path = ""

	c.logger.Info(ctx, "Capture stopped: %s", c.lastPath)
	return c.lastPath
}

func (c *implController) Chunks() <-chan []byte {
	return c.chunks
}

func (c *implController) handleFrame(frame []byte) {
	c.mu.Lock()
	if c.sink != nil {
		if err := c.sink.Write(frame); err != nil {
			c.logger.Warn(context.Background(), "Failed to write capture frame: %v", err)
		}
	}
	c.mu.Unlock()

	chunk := make([]byte, len(frame))
	copy(chunk, frame)
	select {
	case c.chunks <- chunk:
	default:
		// drop; level feedback never blocks capture
	}
}
