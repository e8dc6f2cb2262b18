package capture

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/codexvoice/dictation/internal/logger"
	"github.com/codexvoice/dictation/internal/session"
)

// stubSource hands the frame callback to the test so frames can be
// pushed deterministically.
type stubSource struct {
	mu      sync.Mutex
	onFrame func([]byte)
	stopped int
}

func (s *stubSource) Start(onFrame func(frame []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = onFrame
	return nil
}

func (s *stubSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = nil
	s.stopped++
	return nil
}

func (s *stubSource) push(frame []byte) {
	s.mu.Lock()
	fn := s.onFrame
	s.mu.Unlock()
	if fn != nil {
		fn(frame)
	}
}

func testLogger() logger.Logger {
	return logger.New("error", "json")
}

func TestStartStopWritesWAV(t *testing.T) {
	src := &stubSource{}
	c := New(src, testLogger())
	folder := t.TempDir()

	path, err := c.Start(folder)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if filepath.Dir(path) != folder {
		t.Errorf("sink path %v not inside session folder", path)
	}

	frame := make([]byte, 3200)
	for i := range frame {
		frame[i] = byte(i)
	}
	src.push(frame)
	src.push(frame)

	stopped := c.Stop()
	if stopped != path {
		t.Errorf("Stop() = %v, want %v", stopped, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 44+2*len(frame) {
		t.Fatalf("file length = %d, want %d", len(data), 44+2*len(frame))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE header")
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if size := binary.LittleEndian.Uint32(data[40:44]); size != uint32(2*len(frame)) {
		t.Errorf("data chunk size = %d, want %d", size, 2*len(frame))
	}
}

func TestStartWhileRunning(t *testing.T) {
	src := &stubSource{}
	c := New(src, testLogger())

	if _, err := c.Start(t.TempDir()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop()

	if _, err := c.Start(t.TempDir()); !errors.Is(err, session.ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestStopIdempotent(t *testing.T) {
	src := &stubSource{}
	c := New(src, testLogger())

	if got := c.Stop(); got != "" {
		t.Errorf("Stop() before any capture = %q, want empty", got)
	}

	path, err := c.Start(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	src.push([]byte{1, 2, 3, 4})

	if got := c.Stop(); got != path {
		t.Errorf("Stop() = %v, want %v", got, path)
	}
	if got := c.Stop(); got != path {
		t.Errorf("repeated Stop() = %v, want last path %v", got, path)
	}
	if src.stopped != 1 {
		t.Errorf("source stopped %d times, want 1", src.stopped)
	}
}

func TestZeroFramesLeavesEmptyFile(t *testing.T) {
	src := &stubSource{}
	c := New(src, testLogger())

	path, err := c.Start(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c.Stop()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("empty capture file size = %d, want 0", info.Size())
	}
}

func TestChunkBroadcastNeverBlocks(t *testing.T) {
	src := &stubSource{}
	c := New(src, testLogger())

	if _, err := c.Start(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	// Nobody reads Chunks; pushing far more frames than the channel
	// buffers must not deadlock.
	for i := 0; i < 100; i++ {
		src.push([]byte{byte(i)})
	}

	select {
	case chunk := <-c.Chunks():
		if len(chunk) != 1 {
			t.Errorf("chunk length = %d, want 1", len(chunk))
		}
	default:
		t.Error("expected at least one buffered chunk")
	}
}
