package ports

import (
	"context"

	"github.com/osier-labs/weave/internal/domain"
)

type DownloadResult struct {
	Source domain.DownloadSource `json:"source"`
	Path   string                `json:"path"`
	Bytes  int64                 `json:"bytes"`
}

// Downloader fetches external artifacts (huggingface, url, github).
type Downloader interface {
	Download(ctx context.Context, cfg *domain.DownloadConfig) (*DownloadResult, error)
}

// ActionDispatcher triggers a remote GitHub Actions workflow run.
type ActionDispatcher interface {
	TriggerWorkflow(ctx context.Context, cfg *domain.GitHubActionConfig, inputs map[string]string) error
}
