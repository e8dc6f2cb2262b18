package engine

import (
	"time"

	"github.com/codexvoice/dictation/internal/session"
)

// Phase is the orchestrator's coarse state. Idle is both initial and
// terminal between operations.
type Phase string

const (
	PhaseIdle       Phase = "Idle"
	PhaseRecording  Phase = "Recording"
	PhaseProcessing Phase = "Processing"
)

// State is the in-memory view of the currently open session. Exactly
// one exists per engine; switching sessions replaces it wholesale.
type State struct {
	Title           string
	RawText         string
	Text            string
	Duration        session.Duration
	WordCount       int
	Language        string
	ModelName       string
	SessionFolder   string
	SourceAudioPath string
	CreatedAt       time.Time
	LastUpdated     time.Time
	Completed       bool
}

// Event is one state-transition notification.
type Event struct {
	Phase  Phase
	Status string
	State  State
}
