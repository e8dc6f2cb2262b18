// Package session defines the persistent session model shared by the
// vault and the engine.
package session

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"
)

const (
	MetadataFileName      = "session.json"
	TranscriptFileName    = "transcript.txt"
	RawTranscriptFileName = "raw-transcript.txt"
)

// Status tracks a session through its lifecycle. It is not strictly
// monotonic: a reopened session can move back to Recording.
type Status string

const (
	StatusEmpty      Status = "Empty"
	StatusRecording  Status = "Recording"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
)

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusEmpty, StatusRecording, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Duration is a time.Duration serialized as "mm:ss". Values it cannot
// parse decode to zero so hand-edited metadata still loads.
type Duration time.Duration

func (d Duration) String() string {
	v := time.Duration(d)
	if v <= 0 {
		return "00:00"
	}
	return fmt.Sprintf("%02d:%02d", int(v.Minutes()), int(v.Seconds())%60)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*d = 0
		return nil
	}
	var min, sec int
	if _, err := fmt.Sscanf(s, "%d:%d", &min, &sec); err != nil {
		*d = 0
		return nil
	}
	*d = Duration(time.Duration(min)*time.Minute + time.Duration(sec)*time.Second)
	return nil
}

// Session is one persisted unit of work: an audio source, its transcript
// and the metadata describing both. Folder is derived from the directory
// the metadata lives in and never serialized.
type Session struct {
	ID                string     `json:"id"`
	DisplayName       string     `json:"displayName"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
	Folder            string     `json:"-"`
	TranscriptPath    string     `json:"transcriptPath,omitempty"`
	RawTranscriptPath string     `json:"rawTranscriptPath,omitempty"`
	SourceAudioPath   string     `json:"sourceAudioPath,omitempty"`
	Duration          Duration   `json:"duration"`
	WordCount         int        `json:"wordCount"`
	Model             string     `json:"model,omitempty"`
	Language          string     `json:"language,omitempty"`
	Status            Status     `json:"status"`
	HasTranscript     bool       `json:"hasTranscript"`
}

// DefaultTranscriptPath returns the transcript file path for a session
// folder.
func DefaultTranscriptPath(folder string) string {
	return filepath.Join(folder, TranscriptFileName)
}

// DefaultRawTranscriptPath returns the raw transcript file path for a
// session folder.
func DefaultRawTranscriptPath(folder string) string {
	return filepath.Join(folder, RawTranscriptFileName)
}

// LastTouched returns the most recent of UpdatedAt and CreatedAt.
func (s *Session) LastTouched() time.Time {
	if s.UpdatedAt != nil {
		return *s.UpdatedAt
	}
	return s.CreatedAt
}
