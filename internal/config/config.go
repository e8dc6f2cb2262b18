// Package config loads and validates the engine configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Whisper     WhisperConfig     `yaml:"whisper"`
	Paths       PathsConfig       `yaml:"paths"`
	Capture     CaptureConfig     `yaml:"capture"`
	Autosave    AutosaveConfig    `yaml:"autosave"`
	Format      FormatConfig      `yaml:"format"`
	Logging     LoggingConfig     `yaml:"logging"`
	Performance PerformanceConfig `yaml:"performance"`
}

type WhisperConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ModelPath  string `yaml:"model_path"`
	ModelName  string `yaml:"model_name"`
	Language   string `yaml:"language"`
}

type PathsConfig struct {
	VaultRoot string `yaml:"vault_root"`
	ModelsDir string `yaml:"models_dir"`
	ImportDir string `yaml:"import_dir"`
}

type CaptureConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type AutosaveConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

type FormatConfig struct {
	NormalizeWhitespace bool `yaml:"normalize_whitespace"`
	CapitalizeSentences bool `yaml:"capitalize_sentences"`
	EnsurePunctuation   bool `yaml:"ensure_punctuation"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PerformanceConfig struct {
	// MaxConcurrentImports bounds concurrent watcher handlers for
	// embedders that run one handler per target. The bundled daemon
	// feeds a single engine session and always imports sequentially.
	MaxConcurrentImports int `yaml:"max_concurrent_imports"`
}

// Load reads a yaml config file and applies defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Default returns a config with every optional field pre-populated.
// Loading overwrites only the fields present in the file.
func Default() *Config {
	return &Config{
		Format: FormatConfig{
			NormalizeWhitespace: true,
			CapitalizeSentences: true,
			EnsurePunctuation:   true,
		},
	}
}

func (c *Config) Validate() error {
	if c.Autosave.IntervalSeconds < 0 {
		return fmt.Errorf("autosave.interval_seconds must not be negative")
	}
	if c.Performance.MaxConcurrentImports < 0 {
		return fmt.Errorf("performance.max_concurrent_imports must not be negative")
	}

	if c.Paths.VaultRoot == "" {
		c.Paths.VaultRoot = "data/sessions"
	}
	if c.Paths.ModelsDir == "" {
		c.Paths.ModelsDir = "data/models"
	}
	if c.Whisper.Language == "" {
		c.Whisper.Language = "auto"
	}
	if c.Capture.Command == "" {
		c.Capture.Command = "arecord"
		c.Capture.Args = []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw"}
	}
	if c.Autosave.IntervalSeconds == 0 {
		c.Autosave.IntervalSeconds = 4
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Performance.MaxConcurrentImports == 0 {
		c.Performance.MaxConcurrentImports = 1
	}

	return nil
}

// AutosaveInterval returns the autosave debounce window
func (c *Config) AutosaveInterval() time.Duration {
	return time.Duration(c.Autosave.IntervalSeconds) * time.Second
}
