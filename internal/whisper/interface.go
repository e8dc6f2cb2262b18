package whisper

import "context"

// Runtime supervises the external recognition executable.
type Runtime interface {
	// Transcribe runs the recognizer over a finished audio file and
	// returns the accumulated transcript. Streamed updates and
	// diagnostics are delivered through ev for the duration of the
	// call. Cancelling ctx terminates the process.
	Transcribe(ctx context.Context, modelPath, audioPath string, ev Events) (string, error)
	// Stop force-terminates a running invocation. Always safe to call.
	Stop()
}

// Events carries the per-invocation stream subscriptions. Either
// callback may be nil.
type Events struct {
	// OnText receives the full accumulated transcript after each chunk.
	OnText func(text string)
	// OnMessage receives one diagnostic line from the recognizer.
	OnMessage func(line string)
}
