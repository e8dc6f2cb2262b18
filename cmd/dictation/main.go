package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codexvoice/dictation/internal/capture"
	"github.com/codexvoice/dictation/internal/config"
	"github.com/codexvoice/dictation/internal/engine"
	"github.com/codexvoice/dictation/internal/logger"
	"github.com/codexvoice/dictation/internal/models"
	"github.com/codexvoice/dictation/internal/vault"
	"github.com/codexvoice/dictation/internal/watcher"
	"github.com/codexvoice/dictation/internal/whisper"
	"github.com/codexvoice/dictation/pkg/executor"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	flag.Parse()

	// Optional .env for local overrides, ignored when absent
	_ = godotenv.Load()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info(ctx, "Dictation engine starting")
	log.Info(ctx, "Vault: %s", cfg.Paths.VaultRoot)
	log.Info(ctx, "Models: %s", cfg.Paths.ModelsDir)

	if err := ensureDirectories(cfg); err != nil {
		log.Error(ctx, "Failed to create directories: %v", err)
		os.Exit(1)
	}

	model, err := selectModel(cfg)
	if err != nil {
		log.Error(ctx, "Failed to resolve model catalog: %v", err)
		os.Exit(1)
	}
	if model != nil {
		log.Info(ctx, "Model: %s (%s)", model.Name, model.LocalPath)
	} else {
		log.Warn(ctx, "No installed model found; recording is disabled until one is downloaded")
	}

	v, err := vault.New(cfg.Paths.VaultRoot, log)
	if err != nil {
		log.Error(ctx, "Failed to open vault: %v", err)
		os.Exit(1)
	}

	exec := executor.New()
	source := capture.NewCommandSource(exec, cfg.Capture.Command, cfg.Capture.Args, log)
	ctrl := capture.New(source, log)
	runtime := whisper.New(cfg.Whisper.BinaryPath, cfg.Whisper.Language, exec, log)

	eng := engine.New(cfg, v, ctrl, runtime, log)
	defer eng.Close()
	eng.SetModel(model)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for ev := range eng.Events() {
			log.Debug(ctx, "State: phase=%s status=%q words=%d", ev.Phase, ev.Status, ev.State.WordCount)
		}
	}()

	errChan := make(chan error, 1)
	if cfg.Paths.ImportDir != "" {
		handler := func(ctx context.Context, filePath string) error {
			if _, err := eng.CreateSession(""); err != nil {
				return err
			}
			return eng.ImportAudio(filePath)
		}
		// The engine holds one active session, and a second import would
		// cancel the first one's transcription mid-flight. Imports run
		// strictly one at a time regardless of watcher capacity.
		w, err := watcher.New(cfg.Paths.ImportDir, handler, log, 1)
		if err != nil {
			log.Error(ctx, "Failed to create import watcher: %v", err)
			os.Exit(1)
		}
		defer w.Stop()

		go func() {
			if err := w.Start(ctx); err != nil && err != context.Canceled {
				errChan <- err
			}
		}()
		log.Info(ctx, "Import watcher monitoring: %s", cfg.Paths.ImportDir)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info(ctx, "Dictation engine is ready. Press Ctrl+C to stop")

	select {
	case <-sigChan:
		log.Info(ctx, "Shutdown signal received")
	case err := <-errChan:
		log.Error(ctx, "Watcher error: %v", err)
	}

	log.Info(ctx, "Shutting down gracefully...")
	cancel()
	eng.Close()
	log.Info(ctx, "Dictation engine stopped")
}

// selectModel merges the built-in catalog with the install repository
// and picks the configured model, falling back to the first installed
// one. A bare configured model path synthesizes a descriptor.
func selectModel(cfg *config.Config) (*models.Descriptor, error) {
	if cfg.Whisper.ModelPath != "" {
		name := cfg.Whisper.ModelName
		if name == "" {
			name = filepath.Base(cfg.Whisper.ModelPath)
		}
		return &models.Descriptor{
			ID:        name,
			Name:      name,
			LocalPath: cfg.Whisper.ModelPath,
			Installed: true,
		}, nil
	}

	repo, err := models.NewRepository(cfg.Paths.ModelsDir)
	if err != nil {
		return nil, err
	}
	saved, err := repo.Load()
	if err != nil {
		return nil, err
	}
	merged := models.Merge(models.BuiltInCatalog(), saved)

	if cfg.Whisper.ModelName != "" {
		m := models.FindByName(merged, cfg.Whisper.ModelName)
		if m != nil && m.Installed {
			return m, nil
		}
		return nil, fmt.Errorf("model %q is not installed", cfg.Whisper.ModelName)
	}

	for i := range merged {
		if merged[i].Installed && merged[i].LocalPath != "" {
			return &merged[i], nil
		}
	}
	return nil, nil
}

// ensureDirectories creates required directories if they don't exist
func ensureDirectories(cfg *config.Config) error {
	dirs := []string{cfg.Paths.VaultRoot, cfg.Paths.ModelsDir}
	if cfg.Paths.ImportDir != "" {
		dirs = append(dirs, cfg.Paths.ImportDir)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
