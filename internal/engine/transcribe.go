package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/codexvoice/dictation/internal/session"
	"github.com/codexvoice/dictation/internal/textproc"
	"github.com/codexvoice/dictation/internal/whisper"
)

// cancelInFlight stops a running transcription and waits for its
// goroutine to drain. Pending autosaves are dropped so a stale snapshot
// never lands after the cancel. Callers hold opMu.
func (e *Engine) cancelInFlight() {
	e.stMu.Lock()
	cancel := e.cancelRun
	done := e.runDone
	e.cancelRun = nil
	e.runDone = nil
	e.stMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	e.runtime.Stop()
	if done != nil {
		<-done
	}
	e.saver.Drop()
}

// beginTranscription launches the recognizer over audioPath and returns
// immediately. Callers hold opMu and have verified the model.
func (e *Engine) beginTranscription(audioPath string) error {
	model := e.Model()
	if model == nil || model.LocalPath == "" {
		return session.ErrModelRequired
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.stMu.Lock()
	e.phase = PhaseProcessing
	e.status = "Transcribing…"
	e.cancelRun = cancel
	e.runDone = done
	e.stMu.Unlock()
	e.publish()

	go func() {
		defer close(done)
		e.transcribe(ctx, model.LocalPath, audioPath)

		e.stMu.Lock()
		if e.runDone == done {
			e.cancelRun = nil
			e.runDone = nil
		}
		e.stMu.Unlock()
	}()
	return nil
}

func (e *Engine) transcribe(ctx context.Context, modelPath, audioPath string) {
	events := whisper.Events{
		OnText: func(text string) {
			e.stMu.Lock()
			e.state.RawText = text
			formatted := textproc.Format(text, e.fmtOpts, false)
			e.state.Text = formatted
			e.state.WordCount = textproc.WordCount(formatted)
			e.state.LastUpdated = time.Now().UTC()
			e.stMu.Unlock()

			e.publish()
			e.saver.Trigger()
		},
		OnMessage: func(msg string) {
			e.logger.Debug(ctx, "Recognizer: %s", msg)
		},
	}

	text, err := e.runtime.Transcribe(ctx, modelPath, audioPath, events)

	var exitErr *session.ProcessExitError
	switch {
	case err == nil:
		e.saver.Drop()
		e.finishTranscription(text)
	case errors.Is(err, context.Canceled):
		e.stMu.Lock()
		e.phase = PhaseIdle
		e.status = "Cancelled"
		e.stMu.Unlock()
		e.publish()
	case errors.As(err, &exitErr):
		e.logger.Error(ctx, "Recognizer exited with code %d: %v", exitErr.Code, err)
		e.failTranscription()
	default:
		e.logger.Error(ctx, "Transcription failed: %v", err)
		e.failTranscription()
	}
}

// finishTranscription applies the final formatting pass and persists
// the completed transcript.
func (e *Engine) finishTranscription(text string) {
	e.stMu.Lock()
	e.state.RawText = text
	formatted := textproc.Format(text, e.fmtOpts, true)
	e.state.Text = formatted
	e.state.WordCount = textproc.WordCount(formatted)
	e.state.Completed = true
	e.state.LastUpdated = time.Now().UTC()
	e.phase = PhaseIdle
	e.stMu.Unlock()

	if err := e.persist(true); err != nil {
		e.logger.Error(context.Background(), "Completion save failed: %v", err)
		e.publishStatus("Error")
		return
	}

	if strings.TrimSpace(text) == "" {
		e.publishStatus("No speech recognized")
		return
	}
	e.publishStatus("Completed")
}

func (e *Engine) failTranscription() {
	e.saver.Drop()
	e.stMu.Lock()
	e.phase = PhaseIdle
	e.stMu.Unlock()
	e.publishStatus("Error")
}
