package httpexec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/osier-labs/weave/internal/domain"
	"github.com/osier-labs/weave/internal/ports"
)

// Downloader fetches remote artifacts to local paths. It resolves
// repository sources to their public raw-content URLs.
type Downloader struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewDownloader(cfg domain.HTTPConfig, logger *slog.Logger) *Downloader {
	return &Downloader{
		// Artifact downloads may dwarf api_call responses; no client
		// timeout, callers bound them with the node timeout.
		httpClient: &http.Client{},
		logger:     logger.With("component", "downloader"),
	}
}

func (d *Downloader) Download(ctx context.Context, cfg *domain.DownloadConfig) (*ports.DownloadResult, error) {
	url, err := resolveURL(cfg)
	if err != nil {
		return nil, err
	}

	dest := cfg.Dest
	if dest == "" {
		dest = filepath.Join(os.TempDir(), filepath.Base(url))
	}
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create destination dir: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	d.logger.Debug("downloading artifact", "source", string(cfg.Source), "url", url, "dest", dest)
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s returned %d", url, resp.StatusCode)
	}

	file, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", dest, err)
	}
	written, err := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("write %s: %w", dest, err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close %s: %w", dest, closeErr)
	}

	return &ports.DownloadResult{
		Source: cfg.Source,
		Path:   dest,
		Bytes:  written,
	}, nil
}

func resolveURL(cfg *domain.DownloadConfig) (string, error) {
	revision := cfg.Revision
	if revision == "" {
		revision = "main"
	}

	switch cfg.Source {
	case domain.DownloadSourceURL:
		return cfg.URL, nil
	case domain.DownloadSourceHuggingFace:
		if cfg.File == "" {
			return "", fmt.Errorf("huggingface download requires file: %w", domain.ErrInvalidConfig)
		}
		return fmt.Sprintf("https://huggingface.co/%s/resolve/%s/%s", cfg.Repo, revision, cfg.File), nil
	case domain.DownloadSourceGitHub:
		if cfg.File == "" {
			// No file means the whole repository as a tarball.
			return fmt.Sprintf("https://codeload.github.com/%s/tar.gz/%s", cfg.Repo, revision), nil
		}
		return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", cfg.Repo, revision, cfg.File), nil
	default:
		return "", fmt.Errorf("download source %q: %w", cfg.Source, domain.ErrInvalidConfig)
	}
}
