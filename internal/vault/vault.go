// Package vault stores sessions as one directory each containing a
// metadata file plus optional transcript and audio files.
package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codexvoice/dictation/internal/logger"
	"github.com/codexvoice/dictation/internal/session"
)

type implVault struct {
	root   string
	logger logger.Logger

	// mu serializes Session mutation and metadata writes: an autosave
	// snapshot and a command-path rename/status update may target the
	// same Session concurrently.
	mu sync.Mutex
}

func (v *implVault) Create(displayName string) (*session.Session, error) {
	id := newID()
	now := time.Now()
	folder := filepath.Join(v.root, fmt.Sprintf("%s-%s", now.Format("20060102-150405"), id[:6]))

	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, &session.PersistenceError{Op: "create session folder", Err: err}
	}

	if displayName == "" {
		displayName = fmt.Sprintf("Session %s", now.Format("Jan 2, 15:04"))
	}

	createdAt := now.UTC()
	s := &session.Session{
		ID:                id,
		DisplayName:       displayName,
		CreatedAt:         createdAt,
		UpdatedAt:         &createdAt,
		Folder:            folder,
		TranscriptPath:    session.DefaultTranscriptPath(folder),
		RawTranscriptPath: session.DefaultRawTranscriptPath(folder),
		Status:            session.StatusEmpty,
	}

	if err := v.writeMetadata(s); err != nil {
		return nil, err
	}

	v.logger.Debug(context.Background(), "Created session %s at %s", s.ID, folder)
	return s, nil
}

func (v *implVault) List() ([]*session.Session, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &session.PersistenceError{Op: "list sessions", Err: err}
	}

	var sessions []*session.Session
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folder := filepath.Join(v.root, entry.Name())
		sessions = append(sessions, v.loadOrSynthesize(folder))
	}

	// Folder names embed the creation timestamp, so the tiebreaker keeps
	// equal-timestamp entries in a stable newest-first order.
	sort.SliceStable(sessions, func(i, j int) bool {
		ti, tj := sessions[i].LastTouched(), sessions[j].LastTouched()
		if ti.Equal(tj) {
			return sessions[i].Folder > sessions[j].Folder
		}
		return ti.After(tj)
	})
	return sessions, nil
}

func (v *implVault) SaveSnapshot(s *session.Session, snap Snapshot) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := os.MkdirAll(s.Folder, 0755); err != nil {
		return &session.PersistenceError{Op: "create session folder", Err: err}
	}

	transcriptPath := s.TranscriptPath
	if transcriptPath == "" {
		transcriptPath = session.DefaultTranscriptPath(s.Folder)
	}
	rawPath := s.RawTranscriptPath
	if rawPath == "" {
		rawPath = session.DefaultRawTranscriptPath(s.Folder)
	}

	raw := snap.RawText
	if raw == "" {
		raw = snap.FormattedText
	}

	if err := os.WriteFile(transcriptPath, []byte(snap.FormattedText), 0644); err != nil {
		return &session.PersistenceError{Op: "write transcript", Err: err}
	}
	if err := os.WriteFile(rawPath, []byte(raw), 0644); err != nil {
		return &session.PersistenceError{Op: "write raw transcript", Err: err}
	}

	s.TranscriptPath = transcriptPath
	s.RawTranscriptPath = rawPath
	s.Duration = snap.Duration
	s.WordCount = snap.WordCount
	s.Model = snap.Model
	s.Language = snap.Language
	s.SourceAudioPath = snap.AudioPath
	s.HasTranscript = strings.TrimSpace(snap.FormattedText) != ""

	// Status is re-derived on every save. A later non-final snapshot of
	// a Completed session deliberately moves it back to InProgress.
	switch {
	case snap.MarkCompleted:
		s.Status = session.StatusCompleted
	case s.HasTranscript:
		s.Status = session.StatusInProgress
	case strings.TrimSpace(snap.AudioPath) != "":
		s.Status = session.StatusInProgress
	}

	now := time.Now().UTC()
	s.UpdatedAt = &now

	return v.writeMetadata(s)
}

func (v *implVault) ReadContent(s *session.Session) (string, string, error) {
	transcriptPath := s.TranscriptPath
	if transcriptPath == "" {
		transcriptPath = session.DefaultTranscriptPath(s.Folder)
	}
	rawPath := s.RawTranscriptPath
	if rawPath == "" {
		rawPath = session.DefaultRawTranscriptPath(s.Folder)
	}

	var raw, formatted string
	if data, err := os.ReadFile(rawPath); err == nil {
		raw = string(data)
	} else if !os.IsNotExist(err) {
		return "", "", &session.PersistenceError{Op: "read raw transcript", Err: err}
	}
	if data, err := os.ReadFile(transcriptPath); err == nil {
		formatted = string(data)
	} else if !os.IsNotExist(err) {
		return "", "", &session.PersistenceError{Op: "read transcript", Err: err}
	}

	return raw, formatted, nil
}

func (v *implVault) Rename(s *session.Session, displayName string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	s.DisplayName = displayName
	now := time.Now().UTC()
	s.UpdatedAt = &now
	return v.writeMetadata(s)
}

func (v *implVault) UpdateStatus(s *session.Session, status session.Status) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	s.Status = status
	now := time.Now().UTC()
	s.UpdatedAt = &now
	return v.writeMetadata(s)
}

func (v *implVault) Delete(s *session.Session) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := os.RemoveAll(s.Folder); err != nil {
		return &session.PersistenceError{Op: "delete session", Err: err}
	}
	return nil
}

func (v *implVault) writeMetadata(s *session.Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return &session.PersistenceError{Op: "encode metadata", Err: err}
	}
	path := filepath.Join(s.Folder, session.MetadataFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &session.PersistenceError{Op: "write metadata", Err: err}
	}
	return nil
}

// loadOrSynthesize reads a folder's metadata, defaulting every missing
// or unusable field. Malformed metadata is never fatal: the folder
// itself is enough to rebuild a minimal session.
func (v *implVault) loadOrSynthesize(folder string) *session.Session {
	s := &session.Session{}

	data, err := os.ReadFile(filepath.Join(folder, session.MetadataFileName))
	if err == nil {
		if jerr := json.Unmarshal(data, s); jerr != nil {
			v.logger.Warn(context.Background(), "Malformed metadata in %s: %v", folder, jerr)
			s = &session.Session{}
		}
	}

	s.Folder = folder
	if s.ID == "" {
		s.ID = newID()
	}
	if s.DisplayName == "" {
		s.DisplayName = filepath.Base(folder)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = folderCreatedAt(folder)
	}
	if s.TranscriptPath == "" {
		s.TranscriptPath = session.DefaultTranscriptPath(folder)
	}
	if s.RawTranscriptPath == "" {
		s.RawTranscriptPath = session.DefaultRawTranscriptPath(folder)
	}
	if !s.Status.Valid() {
		s.Status = session.StatusEmpty
	}

	return s
}

func folderCreatedAt(folder string) time.Time {
	info, err := os.Stat(folder)
	if err != nil {
		return time.Now().UTC()
	}
	return info.ModTime().UTC()
}

func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
