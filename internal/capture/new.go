package capture

import (
	"github.com/codexvoice/dictation/internal/logger"
)

// New creates a new Controller reading frames from src
func New(src Source, log logger.Logger) Controller {
	return &implController{
		source: src,
		logger: log,
		chunks: make(chan []byte, 8),
	}
}
