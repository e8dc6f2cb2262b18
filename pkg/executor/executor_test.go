package executor

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestStartReadsStdoutAndStderr(t *testing.T) {
	h, err := New().Start(context.Background(), "sh", "-c", "echo out1; echo out2; echo diag >&2")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var outLines []string
	scanner := bufio.NewScanner(h.Stdout())
	for scanner.Scan() {
		outLines = append(outLines, scanner.Text())
	}

	errData, _ := io.ReadAll(h.Stderr())

	code, err := h.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if len(outLines) != 2 || outLines[0] != "out1" || outLines[1] != "out2" {
		t.Errorf("stdout lines = %v", outLines)
	}
	if strings.TrimSpace(string(errData)) != "diag" {
		t.Errorf("stderr = %q, want diag", errData)
	}
}

func TestWaitReportsExitCode(t *testing.T) {
	h, err := New().Start(context.Background(), "sh", "-c", "exit 2")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	io.Copy(io.Discard, h.Stdout())
	io.Copy(io.Discard, h.Stderr())

	code, err := h.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestStartUnknownCommand(t *testing.T) {
	if _, err := New().Start(context.Background(), "definitely-not-a-command-xyz"); err == nil {
		t.Error("Start() should fail for unknown command")
	}
}

func TestKillStopsProcess(t *testing.T) {
	h, err := New().Start(context.Background(), "sleep", "30")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := h.Kill(); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		h.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after Kill")
	}

	// Killing again must be safe
	if err := h.Kill(); err != nil {
		t.Errorf("second Kill() error = %v", err)
	}
}

func TestContextCancelKills(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h, err := New().Start(ctx, "sleep", "30")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		h.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after context cancel")
	}
}
