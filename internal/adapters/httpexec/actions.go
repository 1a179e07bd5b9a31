package httpexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/osier-labs/weave/internal/domain"
)

// ActionDispatcher fires GitHub Actions workflow_dispatch events through
// the REST API. Dispatch is fire-and-forget: GitHub acknowledges with 204
// and the remote run proceeds on its own.
type ActionDispatcher struct {
	httpClient *http.Client
	cfg        domain.GitHubConfig
	logger     *slog.Logger
}

func NewActionDispatcher(httpCfg domain.HTTPConfig, ghCfg domain.GitHubConfig, logger *slog.Logger) *ActionDispatcher {
	return &ActionDispatcher{
		httpClient: &http.Client{Timeout: httpCfg.RequestTimeout},
		cfg:        ghCfg,
		logger:     logger.With("component", "action-dispatcher"),
	}
}

func (d *ActionDispatcher) TriggerWorkflow(ctx context.Context, cfg *domain.GitHubActionConfig, inputs map[string]string) error {
	ref := cfg.Ref
	if ref == "" {
		ref = "main"
	}

	payload := map[string]interface{}{"ref": ref}
	if len(inputs) > 0 {
		payload["inputs"] = inputs
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode dispatch payload: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/dispatches",
		d.cfg.APIBaseURL, cfg.Owner, cfg.Repo, cfg.Workflow)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build dispatch request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
	if d.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.cfg.Token)
	}

	d.logger.Debug("dispatching workflow",
		"owner", cfg.Owner,
		"repo", cfg.Repo,
		"workflow", cfg.Workflow,
		"ref", ref,
	)
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch %s/%s %s: %w", cfg.Owner, cfg.Repo, cfg.Workflow, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("dispatch %s/%s %s returned %d: %s",
			cfg.Owner, cfg.Repo, cfg.Workflow, resp.StatusCode, snippet(data))
	}
	return nil
}
