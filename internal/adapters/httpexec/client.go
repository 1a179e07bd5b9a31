package httpexec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/osier-labs/weave/internal/domain"
	"github.com/osier-labs/weave/internal/ports"
)

// Client issues api_call requests. Responses outside 2xx fail the call;
// JSON bodies are decoded, anything else is kept as a string. Bodies are
// read through a size cap so a misbehaving endpoint cannot exhaust memory.
type Client struct {
	httpClient *http.Client
	maxBytes   int64
	logger     *slog.Logger
}

func NewClient(cfg domain.HTTPConfig, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		maxBytes:   cfg.MaxResponseBytes,
		logger:     logger.With("component", "http-client"),
	}
}

func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body string) (*ports.HTTPResponse, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, url, err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	limited := io.Reader(resp.Body)
	if c.maxBytes > 0 {
		limited = io.LimitReader(resp.Body, c.maxBytes)
	}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s returned %d: %s", method, url, resp.StatusCode, snippet(data))
	}

	out := &ports.HTTPResponse{StatusCode: resp.StatusCode}
	if len(data) > 0 {
		var parsed interface{}
		if err := json.Unmarshal(data, &parsed); err == nil {
			out.Body = parsed
		} else {
			out.Body = string(data)
		}
	}
	return out, nil
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
