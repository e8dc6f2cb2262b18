package whisper

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/codexvoice/dictation/internal/session"
)

// EnvExecutablePath overrides the recognizer executable location.
const EnvExecutablePath = "DICTATION_WHISPER_PATH"

// relativeCandidates are checked under the application's install
// directory, first existing file wins.
var relativeCandidates = []string{
	"whisper-cli",
	filepath.Join("whisper.cpp", "whisper-cli"),
	filepath.Join("runtimes", "whisper", "whisper-cli"),
	filepath.Join("bin", "whisper-cli"),
}

// resolveExecutable locates the recognizer: configured path, then the
// environment override, then well-known relative install locations.
func (r *implRuntime) resolveExecutable() (string, error) {
	if r.binaryPath != "" && fileExists(r.binaryPath) {
		return r.binaryPath, nil
	}

	if env := os.Getenv(EnvExecutablePath); env != "" && fileExists(env) {
		return env, nil
	}

	base := installDir()
	for _, rel := range relativeCandidates {
		candidate := filepath.Join(base, rel)
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("configure whisper.binary_path or set %s: %w", EnvExecutablePath, session.ErrExecutableNotFound)
}

func installDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}
