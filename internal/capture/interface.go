package capture

// Controller records input device frames into a session folder.
type Controller interface {
	// Start opens a new sink file inside sessionFolder and begins
	// streaming frames into it. Returns session.ErrAlreadyRunning if a
	// capture is in progress.
	Start(sessionFolder string) (string, error)
	// Stop finalizes the sink and returns its path. Idempotent: with no
	// active capture it returns the last finalized path, or "".
	Stop() string
	// Chunks delivers raw captured byte chunks for live level feedback.
	// Delivery is best-effort and never blocks capture.
	Chunks() <-chan []byte
}

// Source delivers raw PCM frames from an input device. Implementations
// must stop invoking the frame callback once Stop returns.
type Source interface {
	Start(onFrame func(frame []byte)) error
	Stop() error
}
