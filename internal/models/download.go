package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const defaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// Downloader fetches model files over HTTP and records the install in
// the repository.
type Downloader struct {
	client  *http.Client
	repo    *Repository
	dir     string
	baseURL string
}

// NewDownloader creates a Downloader writing model files into dir
func NewDownloader(client *http.Client, repo *Repository, dir string) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{
		client:  client,
		repo:    repo,
		dir:     dir,
		baseURL: defaultBaseURL,
	}
}

// SetBaseURL overrides the download mirror.
func (d *Downloader) SetBaseURL(url string) {
	d.baseURL = url
}

// Download fetches one model and returns the descriptor with its local
// path and installed flag replaced. progress, when non-nil, receives
// values in [0,1] as bytes arrive.
func (d *Downloader) Download(ctx context.Context, model Descriptor, progress func(float64)) (Descriptor, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return model, fmt.Errorf("create models dir: %w", err)
	}

	url := fmt.Sprintf("%s/%s.bin", d.baseURL, model.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model, fmt.Errorf("build download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return model, fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model, fmt.Errorf("download model: unexpected status %s", resp.Status)
	}

	dest := filepath.Join(d.dir, model.ID+".bin")
	file, err := os.Create(dest)
	if err != nil {
		return model, fmt.Errorf("create model file: %w", err)
	}

	total := resp.ContentLength
	var written int64
	buf := make([]byte, 64*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				file.Close()
				return model, fmt.Errorf("write model file: %w", werr)
			}
			written += int64(n)
			if progress != nil && total > 0 {
				progress(float64(written) / float64(total))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			file.Close()
			return model, fmt.Errorf("download model: %w", rerr)
		}
	}
	if err := file.Close(); err != nil {
		return model, fmt.Errorf("close model file: %w", err)
	}

	updated := model
	updated.LocalPath = dest
	updated.Installed = true

	if err := d.repo.Save(updated); err != nil {
		return model, err
	}
	return updated, nil
}
