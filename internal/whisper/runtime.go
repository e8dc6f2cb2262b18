// Package whisper spawns and supervises the whisper.cpp executable.
package whisper

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/codexvoice/dictation/internal/logger"
	"github.com/codexvoice/dictation/internal/session"
	"github.com/codexvoice/dictation/pkg/executor"
)

// maxOutputLine bounds one recognizer output line. Long audio produces
// long --output-json lines, well past bufio.Scanner's 64 KB default.
const maxOutputLine = 4 << 20

type implRuntime struct {
	binaryPath string
	language   string
	runner     executor.Runner
	logger     logger.Logger

	mu      sync.Mutex
	running executor.Handle
}

// outputLine is one structured stdout line from the recognizer.
type outputLine struct {
	Text string `json:"text"`
}

func (r *implRuntime) Transcribe(ctx context.Context, modelPath, audioPath string, ev Events) (string, error) {
	if strings.TrimSpace(modelPath) == "" {
		return "", fmt.Errorf("model path: %w", session.ErrConfiguration)
	}
	if !fileExists(modelPath) {
		return "", fmt.Errorf("model %s: %w", modelPath, session.ErrFileMissing)
	}
	if !fileExists(audioPath) {
		return "", fmt.Errorf("audio %s: %w", audioPath, session.ErrFileMissing)
	}

	exe, err := r.resolveExecutable()
	if err != nil {
		return "", err
	}

	args := []string{
		"--model", modelPath,
		"--file", audioPath,
		"--output-json",
	}
	if r.language != "" && r.language != "auto" {
		args = append(args, "--language", r.language)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.logger.Debug(ctx, "Starting recognizer: %s", exe)
	handle, err := r.runner.Start(ctx, exe, args...)
	if err != nil {
		return "", fmt.Errorf("start recognizer: %w", err)
	}

	r.mu.Lock()
	r.running = handle
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = nil
		r.mu.Unlock()
	}()

	var buf strings.Builder
	var readErr error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(handle.Stdout())
		scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
		for scanner.Scan() {
			r.consumeLine(scanner.Text(), &buf, ev)
		}
		if err := scanner.Err(); err != nil {
			readErr = fmt.Errorf("read recognizer output: %w", err)
			// Keep draining so the process never blocks on a full pipe.
			io.Copy(io.Discard, handle.Stdout())
		}
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(handle.Stderr())
		scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			r.logger.Debug(ctx, "Recognizer: %s", line)
			if ev.OnMessage != nil {
				ev.OnMessage(line)
			}
		}
		if err := scanner.Err(); err != nil {
			r.logger.Warn(ctx, "Recognizer stderr read failed: %v", err)
			io.Copy(io.Discard, handle.Stderr())
		}
	}()

	// Both readers drain to end-of-stream before the exit status is
	// collected.
	wg.Wait()
	code, waitErr := handle.Wait()

	if ctx.Err() != nil {
		return buf.String(), ctx.Err()
	}
	if waitErr != nil {
		return buf.String(), fmt.Errorf("recognizer: %w", waitErr)
	}
	if code != 0 {
		return buf.String(), &session.ProcessExitError{Code: code}
	}
	if readErr != nil {
		return buf.String(), readErr
	}

	return buf.String(), nil
}

// consumeLine parses one stdout line as a {"text": ...} object, falling
// back to treating the line as raw transcript text.
func (r *implRuntime) consumeLine(line string, buf *strings.Builder, ev Events) {
	var parsed outputLine
	if err := json.Unmarshal([]byte(line), &parsed); err == nil {
		if strings.TrimSpace(parsed.Text) == "" {
			return
		}
		buf.WriteString(parsed.Text)
	} else {
		if strings.TrimSpace(line) == "" {
			return
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}

	if ev.OnText != nil {
		ev.OnText(buf.String())
	}
}

func (r *implRuntime) Stop() {
	r.mu.Lock()
	handle := r.running
	r.mu.Unlock()

	if handle != nil {
		if err := handle.Kill(); err != nil {
			r.logger.Warn(context.Background(), "Failed to kill recognizer: %v", err)
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
