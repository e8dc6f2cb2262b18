package whisper

import (
	"github.com/codexvoice/dictation/internal/logger"
	"github.com/codexvoice/dictation/pkg/executor"
)

// New creates a new Runtime instance. binaryPath may be empty, in which
// case the executable is resolved from the environment and well-known
// install locations.
func New(binaryPath, language string, runner executor.Runner, log logger.Logger) Runtime {
	return &implRuntime{
		binaryPath: binaryPath,
		language:   language,
		runner:     runner,
		logger:     log,
	}
}
