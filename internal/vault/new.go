package vault

import (
	"fmt"
	"os"

	"github.com/codexvoice/dictation/internal/logger"
)

// New creates a new Vault rooted at rootPath, creating it if absent
func New(rootPath string, log logger.Logger) (Vault, error) {
	if err := os.MkdirAll(rootPath, 0755); err != nil {
		return nil, fmt.Errorf("create vault root: %w", err)
	}

	return &implVault{
		root:   rootPath,
		logger: log,
	}, nil
}
