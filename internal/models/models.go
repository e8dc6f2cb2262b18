// Package models tracks the recognition models available to the engine:
// a built-in catalog, a JSON-file repository of installed models, and a
// downloader.
package models

import "strings"

// Descriptor describes one recognition model. It is immutable except
// for LocalPath and Installed, which are replaced when a download
// finishes.
type Descriptor struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	DownloadSizeMB float64 `json:"downloadSizeMb"`
	LocalPath      string  `json:"localPath,omitempty"`
	Language       string  `json:"language"`
	Installed      bool    `json:"installed"`
}

// BuiltInCatalog returns the models the engine knows how to download.
func BuiltInCatalog() []Descriptor {
	return []Descriptor{
		{
			ID:             "ggml-base.en",
			Name:           "Whisper Base (English)",
			Description:    "Fast English-only model for live captioning",
			DownloadSizeMB: 140,
			Language:       "English",
		},
		{
			ID:             "ggml-small",
			Name:           "Whisper Small Multilingual",
			Description:    "Balanced accuracy across 50+ languages",
			DownloadSizeMB: 480,
			Language:       "Multi",
		},
		{
			ID:             "ggml-medium",
			Name:           "Whisper Medium Multilingual",
			Description:    "High accuracy for production workloads",
			DownloadSizeMB: 1500,
			Language:       "Multi",
		},
	}
}

// Merge overlays saved install state onto catalog entries by id.
// Saved models absent from the catalog are appended.
func Merge(catalog, saved []Descriptor) []Descriptor {
	merged := make([]Descriptor, len(catalog))
	copy(merged, catalog)

	for _, s := range saved {
		found := false
		for i := range merged {
			if strings.EqualFold(merged[i].ID, s.ID) {
				merged[i].LocalPath = s.LocalPath
				merged[i].Installed = s.Installed
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, s)
		}
	}

	return merged
}

// FindByName returns the first descriptor whose name or id matches,
// case-insensitively.
func FindByName(list []Descriptor, name string) *Descriptor {
	for i := range list {
		if strings.EqualFold(list[i].Name, name) || strings.EqualFold(list[i].ID, name) {
			return &list[i]
		}
	}
	return nil
}
