// Package engine coordinates audio capture, recognition, transcript
// post-processing and session persistence behind a single control path.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/codexvoice/dictation/internal/capture"
	"github.com/codexvoice/dictation/internal/config"
	"github.com/codexvoice/dictation/internal/logger"
	"github.com/codexvoice/dictation/internal/models"
	"github.com/codexvoice/dictation/internal/session"
	"github.com/codexvoice/dictation/internal/textproc"
	"github.com/codexvoice/dictation/internal/vault"
	"github.com/codexvoice/dictation/internal/whisper"
)

// Engine is the session orchestrator. Commands are serialized against
// each other; capture frames, recognizer streams and the autosave timer
// run concurrently underneath.
type Engine struct {
	cfg     *config.Config
	vault   vault.Vault
	capture capture.Controller
	runtime whisper.Runtime
	logger  logger.Logger
	saver   *autosaver
	events  chan Event

	// opMu serializes user commands, the single control path.
	opMu sync.Mutex

	// stMu guards the mutable snapshot below. Never held across I/O.
	stMu        sync.Mutex
	phase       Phase
	status      string
	state       State
	active      *session.Session
	model       *models.Descriptor
	fmtOpts     textproc.Options
	recordStart time.Time
	cancelRun   context.CancelFunc
	runDone     chan struct{}

	// saveMu keeps at most one snapshot write in flight and serializes
	// every other vault mutation of the active session against it, so
	// an autosave tick never races a command-path metadata write on the
	// same Session object.
	saveMu sync.Mutex
}

// New creates a new Engine instance
func New(cfg *config.Config, v vault.Vault, cap capture.Controller, rt whisper.Runtime, log logger.Logger) *Engine {
	e := &Engine{
		cfg:     cfg,
		vault:   v,
		capture: cap,
		runtime: rt,
		logger:  log,
		events:  make(chan Event, 16),
		phase:   PhaseIdle,
		status:  "Idle",
		fmtOpts: textproc.Options{
			NormalizeWhitespace: cfg.Format.NormalizeWhitespace,
			CapitalizeSentences: cfg.Format.CapitalizeSentences,
			EnsurePunctuation:   cfg.Format.EnsurePunctuation,
		},
	}
	e.saver = newAutosaver(cfg.AutosaveInterval(), func() {
		// Autosave failures are swallowed: the next tick or the final
		// completion write reconciles state.
		if err := e.persist(false); err != nil {
			e.logger.Warn(context.Background(), "Autosave failed: %v", err)
		}
	})
	return e
}

// Events delivers state-transition notifications. Delivery is
// best-effort; a slow consumer loses intermediate events, never the
// queryable state.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// State returns a copy of the active transcription state.
func (e *Engine) State() State {
	e.stMu.Lock()
	defer e.stMu.Unlock()
	return e.state
}

// Phase returns the orchestrator's current phase.
func (e *Engine) Phase() Phase {
	e.stMu.Lock()
	defer e.stMu.Unlock()
	return e.phase
}

// Status returns the latest user-facing status text.
func (e *Engine) Status() string {
	e.stMu.Lock()
	defer e.stMu.Unlock()
	return e.status
}

// ActiveSession returns the currently open session, or nil.
func (e *Engine) ActiveSession() *session.Session {
	e.stMu.Lock()
	defer e.stMu.Unlock()
	return e.active
}

// SetModel selects the recognition model for subsequent operations.
func (e *Engine) SetModel(m *models.Descriptor) {
	e.stMu.Lock()
	defer e.stMu.Unlock()
	e.model = m
	if e.phase != PhaseRecording && m != nil {
		e.state.ModelName = m.Name
		if m.Language != "" {
			e.state.Language = m.Language
		}
	}
}

// Model returns the selected model descriptor, or nil.
func (e *Engine) Model() *models.Descriptor {
	e.stMu.Lock()
	defer e.stMu.Unlock()
	return e.model
}

// Sessions lists every session in the vault, most recent first.
func (e *Engine) Sessions() ([]*session.Session, error) {
	return e.vault.List()
}

// CreateSession opens a fresh session and makes it active.
func (e *Engine) CreateSession(displayName string) (*session.Session, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return e.createSession(displayName)
}

func (e *Engine) createSession(displayName string) (*session.Session, error) {
	e.resetCapture()

	s, err := e.vault.Create(displayName)
	if err != nil {
		return nil, err
	}
	e.adoptSession(s, "", false, "")
	e.publish()
	return s, nil
}

// LoadSession switches the active session, cancelling any in-flight
// recording or transcription first.
func (e *Engine) LoadSession(s *session.Session) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return e.loadSession(s)
}

func (e *Engine) loadSession(s *session.Session) error {
	e.resetCapture()

	e.saveMu.Lock()
	raw, formatted, err := e.vault.ReadContent(s)
	e.saveMu.Unlock()
	if err != nil {
		return err
	}

	final := s.Status == session.StatusCompleted
	if strings.TrimSpace(raw) == "" {
		raw = formatted
	}
	e.adoptSession(s, raw, final, formatted)
	e.publish()
	return nil
}

// StartRecording begins a capture into the active session's folder.
// Requires an installed model.
func (e *Engine) StartRecording() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	model := e.Model()
	if model == nil || !model.Installed || model.LocalPath == "" {
		return session.ErrModelRequired
	}

	e.cancelInFlight()

	s, err := e.ensureActive()
	if err != nil {
		return err
	}

	// Recording status is persisted immediately, not debounced.
	e.saveMu.Lock()
	err = e.vault.UpdateStatus(s, session.StatusRecording)
	e.saveMu.Unlock()
	if err != nil {
		return err
	}

	e.stMu.Lock()
	e.state.RawText = ""
	e.state.Text = ""
	e.state.WordCount = 0
	e.state.Duration = 0
	e.state.SourceAudioPath = ""
	e.state.ModelName = model.Name
	if model.Language != "" {
		e.state.Language = model.Language
	}
	e.state.Completed = false
	e.state.LastUpdated = time.Now().UTC()
	e.stMu.Unlock()

	if _, err := e.capture.Start(s.Folder); err != nil {
		return err
	}

	e.stMu.Lock()
	e.phase = PhaseRecording
	e.recordStart = time.Now()
	e.status = "Listening"
	e.stMu.Unlock()
	e.publish()
	return nil
}

// StopRecording stops the capture and, when audio was captured, runs
// transcription over it. With no active recording it is a no-op.
func (e *Engine) StopRecording() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.stMu.Lock()
	if e.phase != PhaseRecording {
		e.stMu.Unlock()
		return nil
	}
	elapsed := time.Since(e.recordStart)
	e.stMu.Unlock()

	path := e.capture.Stop()

	e.stMu.Lock()
	e.phase = PhaseIdle
	e.stMu.Unlock()

	if !hasAudio(path) {
		e.publishStatus("No audio captured")
		return nil
	}

	e.stMu.Lock()
	e.state.SourceAudioPath = path
	e.state.Duration = session.Duration(elapsed)
	e.state.LastUpdated = time.Now().UTC()
	e.stMu.Unlock()

	e.publishStatus("Processing capture…")
	if err := e.persist(false); err != nil {
		e.publishStatus("Error")
		return err
	}
	return e.beginTranscription(path)
}

// ImportAudio copies an audio file into the active session and runs
// transcription over the copy. Requires an installed model.
func (e *Engine) ImportAudio(sourcePath string) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	model := e.Model()
	if model == nil || !model.Installed || model.LocalPath == "" {
		return session.ErrModelRequired
	}
	if !fileExists(sourcePath) {
		return fmt.Errorf("import %s: %w", sourcePath, session.ErrFileMissing)
	}

	e.cancelInFlight()

	s, err := e.ensureActive()
	if err != nil {
		return err
	}
	e.saveMu.Lock()
	err = e.vault.UpdateStatus(s, session.StatusInProgress)
	e.saveMu.Unlock()
	if err != nil {
		return err
	}

	ext := filepath.Ext(sourcePath)
	base := strings.TrimSuffix(filepath.Base(sourcePath), ext)
	dest := filepath.Join(s.Folder, fmt.Sprintf("%s-%s%s", base, time.Now().Format("20060102-150405"), ext))
	if err := copyFile(sourcePath, dest); err != nil {
		return fmt.Errorf("copy import: %w", err)
	}

	e.stMu.Lock()
	e.state.RawText = ""
	e.state.Text = ""
	e.state.WordCount = 0
	e.state.Duration = 0
	e.state.SourceAudioPath = dest
	e.state.Completed = false
	e.state.LastUpdated = time.Now().UTC()
	e.stMu.Unlock()

	e.publishStatus("Transcribing import…")
	if err := e.persist(false); err != nil {
		e.publishStatus("Error")
		return err
	}
	return e.beginTranscription(dest)
}

// RunTranscription transcribes an arbitrary audio file into the active
// session, creating one when absent. A positive durationHint is stamped
// on the session in place of a measured capture length.
func (e *Engine) RunTranscription(audioPath string, durationHint time.Duration) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	model := e.Model()
	if model == nil || model.LocalPath == "" {
		return session.ErrModelRequired
	}
	if !fileExists(audioPath) {
		return fmt.Errorf("transcribe %s: %w", audioPath, session.ErrFileMissing)
	}

	e.cancelInFlight()

	if _, err := e.ensureActive(); err != nil {
		return err
	}

	e.stMu.Lock()
	e.state.RawText = ""
	e.state.Text = ""
	e.state.WordCount = 0
	e.state.SourceAudioPath = audioPath
	if durationHint > 0 {
		e.state.Duration = session.Duration(durationHint)
	}
	e.state.Completed = false
	e.state.LastUpdated = time.Now().UTC()
	e.stMu.Unlock()

	return e.beginTranscription(audioPath)
}

// RenameSession updates the active session's display name.
func (e *Engine) RenameSession(displayName string) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	s := e.ActiveSession()
	if s == nil {
		return fmt.Errorf("no active session")
	}
	e.saveMu.Lock()
	err := e.vault.Rename(s, displayName)
	e.saveMu.Unlock()
	if err != nil {
		return err
	}

	e.stMu.Lock()
	e.state.Title = displayName
	e.state.LastUpdated = time.Now().UTC()
	e.stMu.Unlock()
	e.publish()
	return nil
}

// DeleteSession removes the active session and opens the most recent
// remaining one, creating a fresh session when none is left.
func (e *Engine) DeleteSession() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	s := e.ActiveSession()
	if s == nil {
		return nil
	}

	e.resetCapture()

	e.saveMu.Lock()
	err := e.vault.Delete(s)
	e.saveMu.Unlock()
	if err != nil {
		return err
	}

	e.stMu.Lock()
	e.active = nil
	e.state = State{}
	e.stMu.Unlock()

	sessions, err := e.vault.List()
	if err != nil {
		return err
	}
	if len(sessions) > 0 {
		return e.loadSession(sessions[0])
	}
	_, err = e.createSession("")
	return err
}

// SetFormatting replaces the post-processing options and re-runs the
// pipeline over the raw text. A completed transcript keeps its final
// punctuation pass.
func (e *Engine) SetFormatting(opts textproc.Options) {
	e.stMu.Lock()
	e.fmtOpts = opts
	formatted := textproc.Format(e.state.RawText, opts, e.state.Completed)
	e.state.Text = formatted
	e.state.WordCount = textproc.WordCount(formatted)
	e.state.LastUpdated = time.Now().UTC()
	e.stMu.Unlock()

	e.publish()
	e.saver.Trigger()
}

// Close cancels in-flight work and stops the autosave timer.
func (e *Engine) Close() {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.resetCapture()
	e.saver.Stop()
}

// ensureActive returns the active session, creating one when absent.
// Callers hold opMu.
func (e *Engine) ensureActive() (*session.Session, error) {
	if s := e.ActiveSession(); s != nil {
		return s, nil
	}
	return e.createSession("")
}

// resetCapture cancels an in-flight transcription and stops any active
// recording. Callers hold opMu.
func (e *Engine) resetCapture() {
	e.cancelInFlight()

	e.stMu.Lock()
	recording := e.phase == PhaseRecording
	e.stMu.Unlock()
	if recording {
		e.capture.Stop()
	}

	e.stMu.Lock()
	e.phase = PhaseIdle
	e.status = "Idle"
	e.stMu.Unlock()
}

// adoptSession replaces the active transcription state wholesale.
func (e *Engine) adoptSession(s *session.Session, rawText string, final bool, formattedOverride string) {
	e.stMu.Lock()
	defer e.stMu.Unlock()

	formatted := formattedOverride
	if strings.TrimSpace(formatted) == "" {
		formatted = textproc.Format(rawText, e.fmtOpts, final)
	}

	modelName := s.Model
	language := s.Language
	if e.model != nil {
		if modelName == "" {
			modelName = e.model.Name
		}
		if language == "" {
			language = e.model.Language
		}
	}
	if language == "" {
		language = "Auto"
	}

	e.active = s
	e.state = State{
		Title:           s.DisplayName,
		RawText:         rawText,
		Text:            formatted,
		Duration:        s.Duration,
		WordCount:       textproc.WordCount(formatted),
		Language:        language,
		ModelName:       modelName,
		SessionFolder:   s.Folder,
		SourceAudioPath: s.SourceAudioPath,
		CreatedAt:       s.CreatedAt,
		LastUpdated:     s.LastTouched(),
		Completed:       final,
	}
}

// persist writes one snapshot of the active state through the vault.
// At most one write is in flight at a time.
func (e *Engine) persist(final bool) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.stMu.Lock()
	s := e.active
	if s == nil {
		e.stMu.Unlock()
		return nil
	}
	snap := vault.Snapshot{
		RawText:       e.state.RawText,
		FormattedText: e.state.Text,
		Duration:      e.state.Duration,
		WordCount:     e.state.WordCount,
		Model:         e.state.ModelName,
		Language:      e.state.Language,
		AudioPath:     e.state.SourceAudioPath,
		MarkCompleted: final,
	}
	e.stMu.Unlock()

	if err := e.vault.SaveSnapshot(s, snap); err != nil {
		return err
	}

	e.stMu.Lock()
	if e.active == s && s.UpdatedAt != nil {
		e.state.LastUpdated = *s.UpdatedAt
	}
	e.stMu.Unlock()
	return nil
}

func (e *Engine) publishStatus(status string) {
	e.stMu.Lock()
	e.status = status
	e.stMu.Unlock()
	e.publish()
}

func (e *Engine) publish() {
	e.stMu.Lock()
	ev := Event{Phase: e.phase, Status: e.status, State: e.state}
	e.stMu.Unlock()

	select {
	case e.events <- ev:
	default:
	}
}

func hasAudio(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
