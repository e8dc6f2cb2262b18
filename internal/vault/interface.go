package vault

import "github.com/codexvoice/dictation/internal/session"

// Vault defines the interface for durable per-session storage
type Vault interface {
	// Create allocates a session folder and writes initial metadata.
	// An empty displayName gets a generated one.
	Create(displayName string) (*session.Session, error)
	// List returns every session under the vault root, most recently
	// touched first. Folders without readable metadata are synthesized.
	List() ([]*session.Session, error)
	// SaveSnapshot writes both transcript files and the refreshed
	// metadata for a point-in-time state.
	SaveSnapshot(s *session.Session, snap Snapshot) error
	// ReadContent returns the raw and formatted transcript text. Either
	// is empty when its file is absent.
	ReadContent(s *session.Session) (raw, formatted string, err error)
	Rename(s *session.Session, displayName string) error
	UpdateStatus(s *session.Session, status session.Status) error
	// Delete removes the session folder recursively. Idempotent.
	Delete(s *session.Session) error
}

// Snapshot is one point-in-time persisted write of a session's
// transcript, metrics and status.
type Snapshot struct {
	RawText       string
	FormattedText string
	Duration      session.Duration
	WordCount     int
	Model         string
	Language      string
	AudioPath     string
	MarkCompleted bool
}
