package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const metadataFileName = "models.json"

// Repository persists installed-model metadata as a single JSON file.
type Repository struct {
	path string
}

// NewRepository creates the metadata directory if needed
func NewRepository(dir string) (*Repository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}
	return &Repository{path: filepath.Join(dir, metadataFileName)}, nil
}

// Load returns all saved descriptors. A missing file is an empty list.
func (r *Repository) Load() ([]Descriptor, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read model metadata: %w", err)
	}

	var models []Descriptor
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("parse model metadata: %w", err)
	}
	return models, nil
}

// Get returns the saved descriptor with the given id, or nil.
func (r *Repository) Get(id string) (*Descriptor, error) {
	models, err := r.Load()
	if err != nil {
		return nil, err
	}
	for i := range models {
		if strings.EqualFold(models[i].ID, id) {
			return &models[i], nil
		}
	}
	return nil, nil
}

// Save upserts one descriptor by id and rewrites the metadata file.
func (r *Repository) Save(model Descriptor) error {
	models, err := r.Load()
	if err != nil {
		return err
	}

	replaced := false
	for i := range models {
		if strings.EqualFold(models[i].ID, model.ID) {
			models[i] = model
			replaced = true
			break
		}
	}
	if !replaced {
		models = append(models, model)
	}

	data, err := json.MarshalIndent(models, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model metadata: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("write model metadata: %w", err)
	}
	return nil
}
