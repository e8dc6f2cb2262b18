package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/codexvoice/dictation/internal/logger"
	"github.com/codexvoice/dictation/internal/session"
)

func newTestVault(t *testing.T) Vault {
	t.Helper()
	v, err := New(t.TempDir(), logger.New("error", "json"))
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestCreate(t *testing.T) {
	v := newTestVault(t)

	s, err := v.Create("")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if s.ID == "" {
		t.Error("expected generated id")
	}
	if s.DisplayName == "" {
		t.Error("expected generated display name")
	}
	if s.Status != session.StatusEmpty {
		t.Errorf("Status = %v, want Empty", s.Status)
	}
	if _, err := os.Stat(s.Folder); err != nil {
		t.Errorf("session folder missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Folder, session.MetadataFileName)); err != nil {
		t.Errorf("metadata file missing: %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	v := newTestVault(t)
	s, err := v.Create("roundtrip")
	if err != nil {
		t.Fatal(err)
	}

	snap := Snapshot{
		RawText:       "hello  world",
		FormattedText: "Hello world.",
		Duration:      session.Duration(3 * time.Second),
		WordCount:     2,
		Model:         "Whisper Base (English)",
		Language:      "English",
		AudioPath:     filepath.Join(s.Folder, "capture.wav"),
		MarkCompleted: true,
	}
	if err := v.SaveSnapshot(s, snap); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	raw, formatted, err := v.ReadContent(s)
	if err != nil {
		t.Fatalf("ReadContent() error = %v", err)
	}
	if raw != "hello  world" {
		t.Errorf("raw = %q", raw)
	}
	if formatted != "Hello world." {
		t.Errorf("formatted = %q", formatted)
	}
	if s.Status != session.StatusCompleted {
		t.Errorf("Status = %v, want Completed", s.Status)
	}
	if s.WordCount != 2 {
		t.Errorf("WordCount = %v, want 2", s.WordCount)
	}
	if !s.HasTranscript {
		t.Error("HasTranscript should be true")
	}
}

func TestSnapshotRawDefaultsToFormatted(t *testing.T) {
	v := newTestVault(t)
	s, _ := v.Create("")

	if err := v.SaveSnapshot(s, Snapshot{FormattedText: "Only formatted."}); err != nil {
		t.Fatal(err)
	}
	raw, formatted, err := v.ReadContent(s)
	if err != nil {
		t.Fatal(err)
	}
	if raw != "Only formatted." || formatted != "Only formatted." {
		t.Errorf("raw = %q, formatted = %q", raw, formatted)
	}
}

func TestSnapshotStatusInference(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want session.Status
	}{
		{"text without completion", Snapshot{FormattedText: "some text"}, session.StatusInProgress},
		{"completion forced", Snapshot{MarkCompleted: true}, session.StatusCompleted},
		{"audio only", Snapshot{AudioPath: "/tmp/a.wav"}, session.StatusInProgress},
		{"nothing yet", Snapshot{}, session.StatusEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestVault(t)
			s, _ := v.Create("")
			if err := v.SaveSnapshot(s, tt.snap); err != nil {
				t.Fatal(err)
			}
			if s.Status != tt.want {
				t.Errorf("Status = %v, want %v", s.Status, tt.want)
			}
		})
	}
}

func TestSnapshotRegressesCompleted(t *testing.T) {
	// Re-deriving status on save moves a Completed session back to
	// InProgress when a later non-final snapshot lands.
	v := newTestVault(t)
	s, _ := v.Create("")

	if err := v.SaveSnapshot(s, Snapshot{FormattedText: "Done.", MarkCompleted: true}); err != nil {
		t.Fatal(err)
	}
	if s.Status != session.StatusCompleted {
		t.Fatalf("Status = %v, want Completed", s.Status)
	}

	if err := v.SaveSnapshot(s, Snapshot{FormattedText: "Done. More"}); err != nil {
		t.Fatal(err)
	}
	if s.Status != session.StatusInProgress {
		t.Errorf("Status = %v, want InProgress after non-final save", s.Status)
	}
}

func TestReadContentEmptySession(t *testing.T) {
	v := newTestVault(t)
	s, _ := v.Create("")

	raw, formatted, err := v.ReadContent(s)
	if err != nil {
		t.Fatalf("ReadContent() error = %v", err)
	}
	if raw != "" || formatted != "" {
		t.Errorf("expected empty content, got raw=%q formatted=%q", raw, formatted)
	}
}

func TestListOrdering(t *testing.T) {
	v := newTestVault(t)

	first, _ := v.Create("first")
	second, _ := v.Create("second")

	// Touch the older session so it sorts to the top.
	time.Sleep(10 * time.Millisecond)
	if err := v.Rename(first, "first renamed"); err != nil {
		t.Fatal(err)
	}

	sessions, err := v.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len = %d, want 2", len(sessions))
	}
	if sessions[0].ID != first.ID {
		t.Errorf("most recently touched should sort first, got %v", sessions[0].DisplayName)
	}
	if sessions[1].ID != second.ID {
		t.Errorf("second entry = %v", sessions[1].DisplayName)
	}
}

func TestListTolerantMetadata(t *testing.T) {
	root := t.TempDir()
	v, err := New(root, logger.New("error", "json"))
	if err != nil {
		t.Fatal(err)
	}

	// Folder with partial metadata: unknown fields and missing ones.
	partial := filepath.Join(root, "20240101-000000-aaaaaa")
	if err := os.MkdirAll(partial, 0755); err != nil {
		t.Fatal(err)
	}
	meta := `{"displayName":"Partial","status":"Bogus","futureField":42}`
	if err := os.WriteFile(filepath.Join(partial, session.MetadataFileName), []byte(meta), 0644); err != nil {
		t.Fatal(err)
	}

	// Folder with corrupt metadata.
	corrupt := filepath.Join(root, "20240102-000000-bbbbbb")
	if err := os.MkdirAll(corrupt, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(corrupt, session.MetadataFileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	// Folder with no metadata at all.
	bare := filepath.Join(root, "20240103-000000-cccccc")
	if err := os.MkdirAll(bare, 0755); err != nil {
		t.Fatal(err)
	}

	sessions, err := v.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("len = %d, want 3", len(sessions))
	}

	for _, s := range sessions {
		if s.ID == "" {
			t.Errorf("%s: missing id", s.Folder)
		}
		if s.DisplayName == "" {
			t.Errorf("%s: missing display name", s.Folder)
		}
		if !s.Status.Valid() {
			t.Errorf("%s: invalid status %v", s.Folder, s.Status)
		}
		if s.CreatedAt.IsZero() {
			t.Errorf("%s: zero created at", s.Folder)
		}
	}
}

func TestConcurrentMetadataWrites(t *testing.T) {
	v := newTestVault(t)
	s, err := v.Create("contended")
	if err != nil {
		t.Fatal(err)
	}

	// Snapshot writes, status updates and renames may hit the same
	// Session from different goroutines; all must serialize.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			snap := Snapshot{FormattedText: fmt.Sprintf("take %d", i)}
			if err := v.SaveSnapshot(s, snap); err != nil {
				t.Errorf("SaveSnapshot() error = %v", err)
			}
		}(i)
		go func() {
			defer wg.Done()
			if err := v.UpdateStatus(s, session.StatusInProgress); err != nil {
				t.Errorf("UpdateStatus() error = %v", err)
			}
		}()
		go func(i int) {
			defer wg.Done()
			if err := v.Rename(s, fmt.Sprintf("name %d", i)); err != nil {
				t.Errorf("Rename() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	// The metadata file must still be a whole, parseable document.
	sessions, err := v.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != s.ID {
		t.Fatalf("List() = %+v, want the single contended session", sessions)
	}
}

func TestListOrderingEqualTimestamps(t *testing.T) {
	v := newTestVault(t)

	a, err := v.Create("a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := v.Create("b")
	if err != nil {
		t.Fatal(err)
	}

	// Force identical timestamps so only the tiebreaker orders them.
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, s := range []*session.Session{a, b} {
		s.CreatedAt = ts
		s.UpdatedAt = &ts
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(s.Folder, session.MetadataFileName), data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	first, err := v.List()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := v.List()
		if err != nil {
			t.Fatal(err)
		}
		for j := range first {
			if again[j].Folder != first[j].Folder {
				t.Fatalf("List() order changed between calls: %v vs %v", again[j].Folder, first[j].Folder)
			}
		}
	}
	if first[0].Folder < first[1].Folder {
		t.Errorf("equal timestamps should order by folder descending: %v, %v", first[0].Folder, first[1].Folder)
	}
}

func TestUpdateStatusTouchesMetadata(t *testing.T) {
	v := newTestVault(t)
	s, _ := v.Create("")
	before := *s.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	if err := v.UpdateStatus(s, session.StatusRecording); err != nil {
		t.Fatal(err)
	}
	if s.Status != session.StatusRecording {
		t.Errorf("Status = %v, want Recording", s.Status)
	}
	if !s.UpdatedAt.After(before) {
		t.Error("UpdatedAt not refreshed")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	v := newTestVault(t)
	s, _ := v.Create("")

	if err := v.Delete(s); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(s.Folder); !os.IsNotExist(err) {
		t.Error("folder should be gone")
	}
	if err := v.Delete(s); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}
